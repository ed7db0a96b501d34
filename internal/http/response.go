package http

import (
	"encoding/json"
	"net/http"

	"budzet/internal/core"
	"budzet/internal/log"
	"budzet/internal/services"
)

type errorDetail struct {
	Kind    core.ErrorKind `json:"kind"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// statusFor maps a ledger error kind to its HTTP status.
func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindUnknownBank, core.KindUnknownGroup, core.KindUnknownCategory, core.KindUnknownLoan:
		return http.StatusNotFound
	case core.KindInsufficientFunds, core.KindBankClosed:
		return http.StatusConflict
	case core.KindInvalidArgument, core.KindInvalidLoanParameters:
		return http.StatusUnprocessableEntity
	case core.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the error body. Unavailable errors keep their
// cause out of the response.
func writeError(w http.ResponseWriter, r *http.Request, e *core.Error) {
	status := statusFor(e.Kind)
	detail := errorDetail{Kind: e.Kind, Field: e.Field, Message: e.Message}

	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithRejection(string(e.Kind), e.Field)
	if e.Kind == core.KindUnavailable {
		w.Header().Set("Retry-After", "1")
		detail.Message = "service temporarily unavailable, retry later"
		logger.ErrorContext(r.Context(), "Command unavailable", fields.WithError(e).ToSlice()...)
	} else {
		logger.InfoContext(r.Context(), "Command rejected", fields.ToSlice()...)
	}
	writeJSON(w, status, errorBody{Error: detail})
}

// writeResult renders a facade result, converting the value with render.
func writeResult[T any, R any](w http.ResponseWriter, r *http.Request, res services.Result[T], okStatus int, render func(T) R) {
	if !res.OK() {
		writeError(w, r, res.Err)
		return
	}
	writeJSON(w, okStatus, render(res.Value))
}

func badRequest(w http.ResponseWriter, r *http.Request, field, message string) {
	writeError(w, r, core.Reject(core.KindInvalidArgument, field, "%s", message))
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
		Kind:    "rate_limited",
		Message: "rate limit exceeded, retry later",
	}})
}

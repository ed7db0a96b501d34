package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budzet/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected so typos do not silently become zero values.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *core.Error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Reject(core.KindInvalidArgument, "body", "request body is empty")
		}
		return core.Reject(core.KindInvalidArgument, fieldOf(err), "malformed request body: %v", err)
	}
	if dec.More() {
		return core.Reject(core.KindInvalidArgument, "body", "request body must hold a single JSON object")
	}
	return nil
}

// fieldOf names the offending JSON field when the decoder reports one.
func fieldOf(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field
	}
	if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field ") {
		return strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
	}
	return "body"
}

// pathID parses a positive id path value.
func pathID(r *http.Request, name, field string) (int64, *core.Error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Reject(core.KindInvalidArgument, field, "invalid id %q", raw)
	}
	return id, nil
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, *core.Error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.Reject(core.KindInvalidArgument, name, "invalid %s %q", name, raw)
	}
	return v, nil
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

// idempotencyKey reads the Idempotency-Key header.
func idempotencyKey(r *http.Request) (string, *core.Error) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(key) > 200 {
		return "", core.Reject(core.KindInvalidArgument, "idempotency_key", "key longer than %d characters", 200)
	}
	return key, nil
}

// parseInstant reads an RFC 3339 timestamp, or a bare date as midnight in loc.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(core.DateLayout, s, loc)
}

func requireMoney(m *core.Money, field string) *core.Error {
	if m == nil {
		return core.Reject(core.KindInvalidArgument, field, "%s is required", field)
	}
	return nil
}

package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func bufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentLedger)

	l.InfoContext(context.Background(), "Category allocated", FieldCategoryID, 7)
	assert.Contains(t, buf.String(), "component=ledger")
	assert.Contains(t, buf.String(), "category_id=7")

	buf.Reset()
	l.WithComponent(ComponentAutopay).WarnContext(context.Background(), "Installment not paid")
	assert.Contains(t, buf.String(), "component=autopay")
}

func TestMiddlewareCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf, ComponentHTTP)

	h := Middleware(l, func(*http.Request) string { return "req-1" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/banks", nil))

	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufferLogger(&buf, ComponentHTTP))
	r := httptest.NewRequest(http.MethodPost, "/api/groups/1/categories", nil)

	sl.LogHTTPEnd(context.Background(), r, "req-2", http.StatusConflict, 3, "10.0.0.1")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "status_code=409")

	buf.Reset()
	sl.LogError(context.Background(), "Store failed", errors.New("disk full"), OpAllocate, NewFields().WithEntity(FieldBankID, 3).WithEntity(FieldLoanID, 0))
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "bank_id=3")
	assert.NotContains(t, out, "loan_id")
}

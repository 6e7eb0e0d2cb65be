package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func newJSONLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, JSON: true, Output: buf})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	return m
}

func TestLogger_StampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentAuth)

	logger.Info("hello", FieldUserID, "u1")

	line := decodeLine(t, &buf)
	if line[FieldComponent] != ComponentAuth {
		t.Errorf("component = %v, want %v", line[FieldComponent], ComponentAuth)
	}
	if line[FieldUserID] != "u1" {
		t.Errorf("user_id = %v, want u1", line[FieldUserID])
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentApp).WithComponent(ComponentDashboard)

	if logger.Component() != ComponentDashboard {
		t.Fatalf("Component() = %v", logger.Component())
	}
	logger.Warn("skipped records", FieldSkipped, 2)

	line := decodeLine(t, &buf)
	if line[FieldComponent] != ComponentDashboard {
		t.Errorf("component = %v, want %v", line[FieldComponent], ComponentDashboard)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, JSON: true, Output: &buf})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record should be filtered, got %q", buf.String())
	}
	logger.Error("kept")
	if buf.Len() == 0 {
		t.Fatal("error record should be written")
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithTransaction("t1", "expense", decimal.RequireFromString("12.50"), "Food").
		WithError(nil).
		WithError(errors.New("boom"))

	if fields[FieldAmount] != "12.5" {
		t.Errorf("amount = %v, want 12.5", fields[FieldAmount])
	}
	if fields[FieldError] != "boom" {
		t.Errorf("error = %v, want boom", fields[FieldError])
	}
	if got := len(fields.ToSlice()); got != 2*len(fields) {
		t.Errorf("ToSlice() length = %d, want %d", got, 2*len(fields))
	}
}

func TestMiddleware_FromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentHTTP)

	var got *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		}),
	))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil {
		t.Fatal("logger missing from context")
	}
	got.Info("inside")
	line := decodeLine(t, &buf)
	if line[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v, want req-1", line[FieldRequestID])
	}
}

func TestFromContext_Default(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger: %+v", logger)
	}
}

func TestStructuredLogger_LogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newJSONLogger(&buf, ComponentHTTP))
		r := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)

		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "127.0.0.1")

		line := decodeLine(t, &buf)
		if line["level"] != tt.level {
			t.Errorf("status %d: level = %v, want %v", tt.status, line["level"], tt.level)
		}
	}
}

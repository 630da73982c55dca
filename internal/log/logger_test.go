package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})

	logger.WithComponent(ComponentGnuCash).With(FieldBookPath, "book.gnucash").Info("book loaded")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record[FieldComponent] != ComponentGnuCash {
		t.Errorf("component = %v, want %s", record[FieldComponent], ComponentGnuCash)
	}
	if record[FieldBookPath] != "book.gnucash" {
		t.Errorf("book_path = %v", record[FieldBookPath])
	}
	if record["msg"] != "book loaded" {
		t.Errorf("msg = %v", record["msg"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=app") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentSession).
		WithSession("abc", "trends").
		WithOperation(OpApply).
		WithError(errors.New("boom"))

	if fields[FieldView] != "trends" || fields[FieldSessionID] != "abc" {
		t.Errorf("session fields = %v", fields)
	}
	args := fields.ToSlice()
	if len(args) != 8 {
		t.Errorf("ToSlice() has %d items, want 8 (component excluded)", len(args))
	}

	if _, ok := NewFields().WithError(nil)[FieldError]; ok {
		t.Error("nil error should not be recorded")
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})

	var fromCtx *Logger
	handler := Middleware(logger, func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromCtx = FromContext(r.Context())
			w.WriteHeader(http.StatusNotFound)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/x/settings", nil))

	if fromCtx == nil || fromCtx.Component() != ComponentHTTP {
		t.Fatalf("request logger not stored in context: %v", fromCtx)
	}
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", record["level"])
	}
	if record[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v", record[FieldRequestID])
	}
	if record[FieldStatusCode] != float64(http.StatusNotFound) {
		t.Errorf("status_code = %v", record[FieldStatusCode])
	}
}

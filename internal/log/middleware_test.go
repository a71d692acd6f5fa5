package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: "test",
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestRequestLoggerLogsOneLine(t *testing.T) {
	var buf bytes.Buffer
	mw := RequestLogger(captureLogger(&buf))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestID(r.Context()) == "" {
			t.Error("request ID missing from context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/expense/records?dateRange=week", nil))

	out := buf.String()
	if !strings.Contains(out, "HTTP request completed") {
		t.Fatalf("missing completion line: %s", out)
	}
	if !strings.Contains(out, "status_code=200") {
		t.Fatalf("missing status: %s", out)
	}
	if !strings.Contains(out, "path=/api/v1/expense/records") {
		t.Fatalf("missing path: %s", out)
	}
	if !strings.Contains(out, "request_id=req_") {
		t.Fatalf("missing request id: %s", out)
	}
}

func TestRequestLoggerLevelEscalation(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		mw := RequestLogger(captureLogger(&buf))
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
		if !strings.Contains(buf.String(), tc.level) {
			t.Fatalf("status %d: want %s in %s", tc.status, tc.level, buf.String())
		}
	}
}

func TestRequestIDMissing(t *testing.T) {
	if got := RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestLoggerComponentTag(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)
	logger.Info("hello", "k", "v")
	out := buf.String()
	if !strings.Contains(out, "component=test") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected line: %s", out)
	}
}

package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/buzzindex/buzzboard/internal/common"
)

func TestLoggingMiddleware_4xxUsesInfoLevel(t *testing.T) {
	// At WARN level, Info() events are filtered out, so a 404 must
	// produce no output.
	var buf bytes.Buffer
	logger := common.NewLoggerWithOutput("warn", &buf)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/missing", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if out := buf.String(); strings.Contains(out, "HTTP request") {
		t.Errorf("expected 404 log filtered at WARN level, got: %s", out)
	}
}

func TestLoggingMiddleware_5xxUsesErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := common.NewLoggerWithOutput("warn", &buf)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/broken", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if out := buf.String(); !strings.Contains(out, "HTTP request") {
		t.Errorf("expected 500 log to pass WARN filter, got: %q", out)
	}
}

func TestLoggingMiddleware_2xxUsesTraceLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := common.NewLoggerWithOutput("info", &buf)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if out := buf.String(); strings.Contains(out, "HTTP request") {
		t.Errorf("expected 200 log filtered at INFO level, got: %s", out)
	}
}

func TestCorrelationIDMiddleware_HonorsRequestID(t *testing.T) {
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Correlation-ID"); got != "abc123" {
		t.Errorf("expected supplied request ID to propagate, got %q", got)
	}
}

func TestRecoveryMiddleware_Returns500(t *testing.T) {
	logger := common.NewSilentLogger()
	handler := recoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rr.Code)
	}
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestID_Generated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rid, _ := c.Get("request_id").(string)
	if rid == "" {
		t.Error("expected generated request id")
	}
	if got := rec.Header().Get("X-Request-ID"); got != rid {
		t.Errorf("expected response header %q, got %q", rid, got)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "incoming-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rid, _ := c.Get("request_id").(string); rid != "incoming-id" {
		t.Errorf("expected incoming id preserved, got %q", rid)
	}
}

func TestRecovery_ConvertsPanic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var buf bytes.Buffer
	handler := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		panic("boom")
	})

	err := handler(c)
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}

	logged := buf.String()
	if !strings.Contains(logged, "handler panicked") || !strings.Contains(logged, "boom") {
		t.Errorf("log line missing panic details: %s", logged)
	}
	if !strings.Contains(logged, "stack") {
		t.Errorf("log line missing stack trace: %s", logged)
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", r)
		}
	}()
	_ = handler(c)
	t.Error("expected panic to propagate")
}

func captureLog(t *testing.T, fn echo.HandlerFunc) map[string]interface{} {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/things?limit=5", nil)
	req.Header.Set("User-Agent", "clinic-test")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var buf bytes.Buffer
	_ = Logger(zerolog.New(&buf))(fn)(c)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogger_AccessLine(t *testing.T) {
	entry := captureLog(t, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["method"] != "GET" || entry["status"] != float64(http.StatusOK) {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["uri"] != "/things?limit=5" {
		t.Errorf("uri = %v", entry["uri"])
	}
	if entry["user_agent"] != "clinic-test" {
		t.Errorf("user_agent = %v", entry["user_agent"])
	}
	if entry["bytes_out"] != float64(2) {
		t.Errorf("bytes_out = %v, want 2", entry["bytes_out"])
	}
}

func TestLogger_ErrorLevels(t *testing.T) {
	entry := captureLog(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "db down")
	})
	if entry["level"] != "error" || entry["status"] != float64(http.StatusInternalServerError) {
		t.Errorf("server error entry = %v", entry)
	}

	entry = captureLog(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	})
	if entry["level"] != "warn" || entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("client error entry = %v", entry)
	}
}

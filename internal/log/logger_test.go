package log

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentAnalytics, Output: &buf})
	l.Info("computed", FieldUserID, "u1")
	out := buf.String()
	if !strings.Contains(out, `"component":"analytics"`) || !strings.Contains(out, `"user_id":"u1"`) {
		t.Fatalf("unexpected log line: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentStorage).Warn("slow query")
	if !strings.Contains(buf.String(), `"component":"storage"`) {
		t.Fatalf("component not switched: %s", buf.String())
	}
}

func TestLogFieldsWithError(t *testing.T) {
	f := NewFields().WithError(nil, ErrorTypeDatabase)
	if _, ok := f[FieldError]; ok {
		t.Fatalf("nil error must not add a field")
	}
	f.WithError(errors.New("boom"), ErrorTypeDatabase)
	if f[FieldError] != "boom" || f[FieldErrorType] != ErrorTypeDatabase {
		t.Fatalf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 4 {
		t.Fatalf("expected 4 slice entries, got %d", len(f.ToSlice()))
	}
}

func TestMiddlewareRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentApp, Output: &buf})

	var seen string
	h := Middleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		if FromContext(r.Context()).Component() != ComponentHTTP {
			t.Errorf("request logger should be tagged http")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req_given")
	h.ServeHTTP(rr, req)

	if seen != "req_given" || rr.Header().Get(RequestIDHeader) != "req_given" {
		t.Fatalf("inbound request id not propagated: ctx=%q header=%q", seen, rr.Header().Get(RequestIDHeader))
	}
	if !strings.Contains(buf.String(), `"status_code":418`) || !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Fatalf("unexpected completion log: %s", buf.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if !strings.HasPrefix(seen, "req_") || seen == "req_given" {
		t.Fatalf("expected generated id, got %q", seen)
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartexpense/internal/analytics"
	"smartexpense/internal/core"
	"smartexpense/internal/records"
	"smartexpense/internal/records/memory"
)

const demoUser = "demo"

var demoMonth = core.NewDate(2025, 3, 1)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store := memory.New()
	require.NoError(t, records.SeedDemo(context.Background(), store, demoUser, demoMonth))
	s := NewServer(":0", analytics.NewEngine(store, nil), store, opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(s *Server, method, target, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "192.0.2.10:40000"
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestEndpointsServeJSON(t *testing.T) {
	s := newTestServer(t, Options{RateLimitPerMinute: 1000})

	tests := []struct {
		target string
		check  func(t *testing.T, body map[string]any)
	}{
		{"/api/dashboard/summary?date=2025-03-20", func(t *testing.T, body map[string]any) {
			summary := body["summary"].(map[string]any)
			assert.Equal(t, "4900.00", summary["total_income"])
			assert.Equal(t, "1200.00", summary["total_expenses"])
			assert.Contains(t, body["category_totals"], "expense")
		}},
		{"/api/analytics/insights?date=2025-03-20", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "2025-03", body["month"])
			assert.NotNil(t, body["spikes"])
			assert.NotEmpty(t, body["insight_messages"])
		}},
		{"/api/analytics/charts", func(t *testing.T, body map[string]any) {
			assert.Len(t, body["expense_trend"], 1)
			assert.NotNil(t, body["saving_growth"])
		}},
		{"/api/analytics/budget?date=2025-03-05", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "1500.00", body["budget"])
			assert.Equal(t, "1200.00", body["spent"])
			assert.Equal(t, "Budget at 80%", body["alert"])
		}},
		{"/api/analytics/totals?start=2025-03-01&end=2025-03-31", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "650.00", body["total_savings"])
			assert.Equal(t, "2025-03-01", body["start"])
		}},
		{"/api/analytics/categories?type=expense", func(t *testing.T, body map[string]any) {
			assert.Equal(t, "expense", body["type"])
			items := body["items"].([]any)
			require.Len(t, items, 4)
			assert.Equal(t, "Bills", items[0].(map[string]any)["category"])
		}},
		{"/api/analytics/trend?type=income", func(t *testing.T, body map[string]any) {
			items := body["items"].([]any)
			require.Len(t, items, 1)
			assert.Equal(t, "2025-03", items[0].(map[string]any)["month"])
		}},
		{"/api/saving-goals", func(t *testing.T, body map[string]any) {
			items := body["items"].([]any)
			require.Len(t, items, 1)
			assert.Equal(t, "Laptop", items[0].(map[string]any)["name"])
		}},
		{"/api/categories", func(t *testing.T, body map[string]any) {
			assert.NotEmpty(t, body["items"])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(s, http.MethodGet, tt.target, demoUser)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			tt.check(t, decode(t, rec))
		})
	}
}

func TestUnknownUserGetsEmptyCollections(t *testing.T) {
	s := newTestServer(t, Options{RateLimitPerMinute: 1000})

	rec := do(s, http.MethodGet, "/api/saving-goals", "nobody")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	rec = do(s, http.MethodGet, "/api/analytics/trend?type=expense", "nobody")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"expense","items":[]}`, rec.Body.String())
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t, Options{RateLimitPerMinute: 1000})

	tests := []struct {
		name   string
		method string
		target string
		user   string
		status int
	}{
		{"missing user", http.MethodGet, "/api/analytics/insights", "", http.StatusUnauthorized},
		{"blank user", http.MethodGet, "/api/analytics/insights", "  \t", http.StatusUnauthorized},
		{"bad date", http.MethodGet, "/api/analytics/insights?date=2025-13-01", demoUser, http.StatusBadRequest},
		{"inverted range", http.MethodGet, "/api/analytics/totals?start=2025-04-01&end=2025-03-01", demoUser, http.StatusBadRequest},
		{"bad start", http.MethodGet, "/api/analytics/totals?start=yesterday", demoUser, http.StatusBadRequest},
		{"bad type", http.MethodGet, "/api/analytics/categories?type=refund", demoUser, http.StatusBadRequest},
		{"post not allowed", http.MethodPost, "/api/saving-goals", demoUser, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, tt.method, tt.target, tt.user)
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["request_id"])
		})
	}

	rec := do(s, http.MethodDelete, "/api/categories", demoUser)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

type failingAnalytics struct {
	Analytics
	err error
}

func (f failingAnalytics) Insights(context.Context, core.UserID, core.Date) (core.Insights, error) {
	return core.Insights{}, f.err
}

func TestInternalErrorsAreNotEchoed(t *testing.T) {
	store := memory.New()
	s := NewServer(":0", failingAnalytics{err: errors.New("sqlite: disk I/O error at /var/lib/db")}, store, Options{})
	defer s.Shutdown(context.Background())

	rec := do(s, http.MethodGet, "/api/analytics/insights", demoUser)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "sqlite")

	s2 := NewServer(":0", failingAnalytics{err: context.DeadlineExceeded}, store, Options{})
	defer s2.Shutdown(context.Background())
	rec = do(s2, http.MethodGet, "/api/analytics/insights", demoUser)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/categories", demoUser).Code)
	}
	rec := do(s, http.MethodGet, "/api/categories", demoUser)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	hits, _ := s.SecurityCounters()
	assert.Equal(t, int64(1), hits)

	// Probes are not rate limited.
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code)
}

func TestRateLimiterWindowAndCleanup(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a", nil))
	assert.False(t, rl.allow("a", nil))
	assert.True(t, rl.allow("b", nil))

	now = now.Add(time.Minute)
	assert.True(t, rl.allow("a", nil))

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 2, rl.cleanupStaleEntries())
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthAndReadiness(t *testing.T) {
	store := memory.New()
	var down bool
	s := NewServer(":0", analytics.NewEngine(store, nil), store, Options{
		Ready: pingFunc(func(context.Context) error {
			if down {
				return errors.New("connection refused")
			}
			return nil
		}),
	})
	defer s.Shutdown(context.Background())

	rec := do(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/readyz", "").Code)

	down = true
	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodGet, "/readyz", "").Code)
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct public peer ignores headers", "203.0.113.7:5555", "1.2.3.4", "", "203.0.113.7"},
		{"trusted proxy uses first forwarded", "10.0.0.2:80", "198.51.100.1, 10.0.0.3", "", "198.51.100.1"},
		{"trusted proxy falls back to real ip", "127.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"garbage forwarded value", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
		{"no port", "203.0.113.8", "", "", "203.0.113.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, extractClientIP(req))
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	var m securityMetrics

	req := httptest.NewRequest(http.MethodGet, "/api/categories/../.env", nil)
	assert.True(t, detectSuspiciousRequest(req, &m))

	req = httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	assert.True(t, detectSuspiciousRequest(req, &m))

	req = httptest.NewRequest(http.MethodGet, "/api/analytics/trend?type=expense", nil)
	assert.False(t, detectSuspiciousRequest(req, &m))

	assert.Equal(t, int64(2), m.suspiciousRequests)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "alice", sanitizeInput("  alice\n"))
	assert.Equal(t, "bob", sanitizeInput("b\x00o\x1fb"))
	assert.Equal(t, "", sanitizeInput("\t\r\n"))
}

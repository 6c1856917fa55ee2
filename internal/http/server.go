// Package http serves the analytics engine as a read-only JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
)

// Analytics is the read surface the handlers need. Both analytics.Engine
// and analytics.CachedEngine satisfy it.
type Analytics interface {
	Totals(ctx context.Context, user core.UserID, window core.DateRange) (core.Totals, error)
	CategoryTotals(ctx context.Context, user core.UserID, typ core.TxType) ([]core.CategoryTotal, error)
	Trend(ctx context.Context, user core.UserID, typ core.TxType) ([]core.TrendPoint, error)
	BudgetStatus(ctx context.Context, user core.UserID, ref core.Date) (core.BudgetStatus, error)
	Goals(ctx context.Context, user core.UserID) ([]core.GoalProgress, error)
	Insights(ctx context.Context, user core.UserID, ref core.Date) (core.Insights, error)
	Dashboard(ctx context.Context, user core.UserID, ref core.Date) (core.DashboardSummary, error)
	Charts(ctx context.Context, user core.UserID) (core.ChartData, error)
}

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	Logger             *log.Logger
	Ready              Pinger // nil means always ready
}

type Server struct {
	http.Server
	analytics   Analytics
	categories  records.CategoryReader
	ready       Pinger
	logger      *log.Logger
	timeout     time.Duration
	rateLimiter *rateLimiter
	metrics     securityMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, a Analytics, categories records.CategoryReader, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &Server{
		analytics:   a,
		categories:  categories,
		ready:       opts.Ready,
		logger:      logger.WithComponent(log.ComponentHTTP),
		timeout:     timeout,
		rateLimiter: newRateLimiter(opts.RateLimitPerMinute),
	}
	go s.rateLimiter.startCleanup(5 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	api := map[string]http.HandlerFunc{
		"/api/dashboard/summary":    s.handleDashboard,
		"/api/analytics/insights":   s.handleInsights,
		"/api/analytics/charts":     s.handleCharts,
		"/api/analytics/budget":     s.handleBudget,
		"/api/analytics/totals":     s.handleTotals,
		"/api/analytics/categories": s.handleCategoryTotals,
		"/api/analytics/trend":      s.handleTrend,
		"/api/saving-goals":         s.handleGoals,
		"/api/categories":           s.handleCategories,
	}
	for path, h := range api {
		mux.Handle(path, s.protect(getOnly(h)))
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           log.Middleware(s.logger, extractClientIP)(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// protect applies security headers, suspicious-request logging, per-IP
// rate limiting and the request timeout.
func (s *Server) protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w.Header())
		clientIP := extractClientIP(r)
		logger := log.FromContext(r.Context())

		if detectSuspiciousRequest(r, &s.metrics) {
			logger.WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path, "user_agent", r.Header.Get("User-Agent"))
		}

		if !s.rateLimiter.allow(clientIP, &s.metrics) {
			logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:     "rate limit exceeded, try again later",
				RequestID: log.RequestID(r.Context()),
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
				Error:     "method " + r.Method + " not allowed",
				RequestID: log.RequestID(r.Context()),
			})
			return
		}
		h(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "readiness check failed",
				log.NewFields().WithError(err, log.ErrorTypeDatabase).ToSlice()...)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// SecurityCounters returns the rate-limit hits and suspicious requests seen so far.
func (s *Server) SecurityCounters() (rateLimitHits, suspicious int64) {
	return atomic.LoadInt64(&s.metrics.rateLimitHits), atomic.LoadInt64(&s.metrics.suspiciousRequests)
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		hits, suspicious := s.SecurityCounters()
		s.logger.InfoContext(ctx, "HTTP server shutting down",
			log.FieldOperation, log.OpShutdown, "rate_limit_hits", hits, "suspicious_requests", suspicious)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
)

// Options configures a Server. Zero values fall back to sensible defaults.
type Options struct {
	Addr               string
	Location           *time.Location
	ExportPrefix       string
	RateLimitPerMinute int
	TrustedProxies     []string
	// SecureCookie marks the session cookie as HTTPS only.
	SecureCookie bool
	// Ready reports whether backing services are reachable; nil means always ready.
	Ready  func(ctx context.Context) error
	Now    func() time.Time
	Logger *applog.Logger
}

type Server struct {
	http.Server
	auth   auth.Provider
	ledger *ledger.Service
	opts   Options
	log    *applog.StructuredLogger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, provider auth.Provider, svc *ledger.Service) (*Server, error) {
	if opts.Location == nil {
		opts.Location = svc.Location()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}
	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		auth:     provider,
		ledger:   svc,
		opts:     opts,
		log:      applog.NewStructuredLogger(opts.Logger),
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, detector.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /auth/signout", s.handleSignOut)

	mux.HandleFunc("GET /api/ledger", s.withSession(s.handleLedger))
	mux.HandleFunc("GET /api/balances", s.withSession(s.handleBalances))
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("POST /api/transactions", s.withSession(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSession(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/export", s.withSession(s.handleExport))

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ClientIP, s.onRateLimited)(h)
	h = detector.Middleware(s.onSuspicious)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// RequestMetrics exposes the tracer's request counters.
func (s *Server) RequestMetrics() trace.Metrics {
	return s.tracer.Metrics()
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ClientIP(r), applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
}

func (s *Server) onSuspicious(r *http.Request, reason string) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request blocked",
		applog.FieldClientIP, s.detector.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		"reason", reason)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess auth.Session)

// withSession resolves the caller's session or answers 401.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.auth.Resolve(r.Context(), sessionToken(r))
		if err != nil {
			FromError(err).Write(w)
			return
		}
		next(w, r, sess)
	}
}

// fail logs err according to its class and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.LogError(r.Context(), "Request failed", err, op, kind, nil)
	} else {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, op, applog.FieldErrorType, kind, applog.FieldError, err.Error())
	}
	FromError(err).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "not_ready", "not ready").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

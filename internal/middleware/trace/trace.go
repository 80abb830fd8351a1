// Package trace tags every request with an id, puts a request logger in its
// context and logs its completion.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "finanzas/internal/log"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	HeaderName              = "X-Request-ID"
)

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// Metrics counts requests and tracks the mean response time.
type Metrics struct {
	TotalRequests   int64
	TotalDurationUs int64
}

// AverageResponseTime is the mean duration over every request seen.
func (m Metrics) AverageResponseTime() time.Duration {
	if m.TotalRequests == 0 {
		return 0
	}
	return time.Duration(m.TotalDurationUs/m.TotalRequests) * time.Microsecond
}

type Middleware struct {
	extractIP func(*http.Request) string
	logger    *applog.Logger
	requests  atomic.Int64
	durations atomic.Int64
}

func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP, logger: logger}
}

// Middleware wraps next with request id propagation and completion logging.
// A well-formed incoming X-Request-ID is reused.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	withLogger := applog.Middleware(m.logger, func(r *http.Request) string {
		return RequestID(r.Context())
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		id := r.Header.Get(HeaderName)
		if !validRequestID.MatchString(id) {
			id = GenerateRequestID()
		}
		w.Header().Set(HeaderName, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		ctx := r.Context()
		withLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx = r.Context()
			next.ServeHTTP(w, r)
		})).ServeHTTP(rw, r)

		d := time.Since(start)
		m.requests.Add(1)
		m.durations.Add(d.Microseconds())
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogHTTPEnd(ctx, r, rw.statusCode, d.Milliseconds(), clientIP)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func (m *Middleware) Metrics() Metrics {
	return Metrics{TotalRequests: m.requests.Load(), TotalDurationUs: m.durations.Load()}
}

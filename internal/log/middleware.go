package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerKey contextKey = "logger"

// NewContext returns ctx carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the request logger, or one wrapping slog's default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware puts a logger tagged with the request id into the request context.
func Middleware(base *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base
			if id := requestID(r); id != "" {
				l = base.With(FieldRequestID, id)
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// StructuredLogger writes the handful of events every request produces.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(l *Logger) *StructuredLogger {
	return &StructuredLogger{logger: l}
}

// LogHTTPEnd logs a finished request at a level matching its status.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	f := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		WithHTTPResponse(status, durationMs).
		WithClientIP(clientIP)
	sl.logger.Log(ctx, level, "HTTP request completed", f.ToSlice()...)
}

// LogLedgerChange records a successful insert or remove.
func (sl *StructuredLogger) LogLedgerChange(ctx context.Context, op, userID, txID, kind string, amountCents int64) {
	f := NewFields().
		WithOperation(op).
		WithUser(userID).
		WithTransaction(txID, kind, amountCents)
	sl.logger.InfoContext(ctx, "Ledger changed", f.ToSlice()...)
}

// LogError records a failed operation with its classification.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, op, errorType string, extra Fields) {
	if extra == nil {
		extra = NewFields()
	}
	extra = extra.WithError(err).WithOperation(op)
	extra[FieldErrorType] = errorType
	sl.logger.ErrorContext(ctx, msg, extra.ToSlice()...)
}

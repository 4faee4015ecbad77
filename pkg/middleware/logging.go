package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/willrp/willstores-ws/pkg/logger"
)

// RequestLogging assigns the correlation ID and writes one access log line
// per request. The level follows the outcome: engine timeouts and server
// errors log at error, refused callers at warn, everything else at info.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get("X-Correlation-ID")
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			ctx := logger.WithCorrelationID(r.Context(), correlationID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Correlation-ID", correlationID)

			rw := newStatusRecorder(w)
			next.ServeHTTP(rw, r)

			outcome := Outcome(rw.status)
			l.LogAttrs(ctx, outcomeLevel(outcome), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", rw.status),
				slog.String("outcome", outcome),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes", rw.bytes),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", correlationID),
			)
		})
	}
}

func outcomeLevel(outcome string) slog.Level {
	switch outcome {
	case OutcomeError, OutcomeBackendUnavailable:
		return slog.LevelError
	case OutcomeUnauthorized, OutcomeRateLimited:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

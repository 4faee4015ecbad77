package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Request outcomes, coarser than the status code. The catalog answers an
// empty result with 204 and an unreachable search engine with 504; both are
// tracked separately from ordinary success and failure.
const (
	OutcomeOK                 = "ok"
	OutcomeNoContent          = "no_content"
	OutcomeNotFound           = "not_found"
	OutcomeUnauthorized       = "unauthorized"
	OutcomeRateLimited        = "rate_limited"
	OutcomeClientError        = "client_error"
	OutcomeBackendUnavailable = "backend_unavailable"
	OutcomeError              = "error"
)

// Outcome classifies a response status code.
func Outcome(status int) string {
	switch {
	case status == http.StatusNoContent:
		return OutcomeNoContent
	case status == http.StatusNotFound:
		return OutcomeNotFound
	case status == http.StatusUnauthorized:
		return OutcomeUnauthorized
	case status == http.StatusTooManyRequests:
		return OutcomeRateLimited
	case status == http.StatusGatewayTimeout:
		return OutcomeBackendUnavailable
	case status >= 500:
		return OutcomeError
	case status >= 400:
		return OutcomeClientError
	default:
		return OutcomeOK
	}
}

// routePattern returns the matched chi route, or "unknown" outside a chi
// router or when nothing matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}

// statusRecorder captures the first status code and the body size written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Flush delegates to the underlying writer when it supports flushing.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack delegates to the underlying writer when it supports hijacking.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("middleware: response writer does not support hijacking")
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric returns the first metric of c whose labels include labels.
func collectMetric(t *testing.T, c prometheus.Collector, labels map[string]string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		got := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

// catalogRouter mounts the metrics middleware in front of a few catalog
// routes that answer with fixed statuses.
func catalogRouter(service string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(service))
	r.Post("/api/search/{query}/{page}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "query") == "nothing" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"products":[]}`))
	})
	r.Post("/api/brand/{brand}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	})
	r.Get("/api/product/{productid}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return r
}

func send(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, OutcomeOK},
		{http.StatusNoContent, OutcomeNoContent},
		{http.StatusBadRequest, OutcomeClientError},
		{http.StatusUnauthorized, OutcomeUnauthorized},
		{http.StatusNotFound, OutcomeNotFound},
		{http.StatusTooManyRequests, OutcomeRateLimited},
		{http.StatusInternalServerError, OutcomeError},
		{http.StatusGatewayTimeout, OutcomeBackendUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.status), "status %d", tt.status)
	}
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	h := catalogRouter("metrics-route")

	send(h, http.MethodPost, "/api/search/shirt/1")
	send(h, http.MethodPost, "/api/search/dress/2")

	m := collectMetric(t, httpRequestsTotal, map[string]string{
		"service": "metrics-route",
		"method":  http.MethodPost,
		"path":    "/api/search/{query}/{page}",
		"status":  "200",
		"outcome": OutcomeOK,
	})
	require.NotNil(t, m, "counter for the search route should exist")
	assert.Equal(t, float64(2), m.GetCounter().GetValue())
}

func TestPrometheusMetrics_EmptyResultIsNoContent(t *testing.T) {
	h := catalogRouter("metrics-empty")

	rr := send(h, http.MethodPost, "/api/search/nothing/1")
	require.Equal(t, http.StatusNoContent, rr.Code)

	m := collectMetric(t, httpRequestsTotal, map[string]string{
		"service": "metrics-empty",
		"status":  "204",
		"outcome": OutcomeNoContent,
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}

func TestPrometheusMetrics_GatewayTimeoutIsBackendUnavailable(t *testing.T) {
	h := catalogRouter("metrics-504")

	send(h, http.MethodPost, "/api/brand/Nike")

	m := collectMetric(t, httpRequestDuration, map[string]string{
		"service": "metrics-504",
		"path":    "/api/brand/{brand}",
		"outcome": OutcomeBackendUnavailable,
	})
	require.NotNil(t, m, "duration histogram should carry the backend_unavailable outcome")
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}

func TestPrometheusMetrics_NotFoundStatus(t *testing.T) {
	h := catalogRouter("metrics-404")

	send(h, http.MethodGet, "/api/product/missing")

	m := collectMetric(t, httpRequestsTotal, map[string]string{
		"service": "metrics-404",
		"path":    "/api/product/{productid}",
		"status":  "404",
		"outcome": OutcomeNotFound,
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}

func TestPrometheusMetrics_ResponseSize(t *testing.T) {
	h := catalogRouter("metrics-size")

	send(h, http.MethodPost, "/api/search/shirt/1")

	m := collectMetric(t, httpResponseSize, map[string]string{
		"service": "metrics-size",
		"path":    "/api/search/{query}/{page}",
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(len(`{"products":[]}`)), m.GetHistogram().GetSampleSum())
}

func TestPrometheusMetrics_UnmatchedRouteIsUnknown(t *testing.T) {
	h := catalogRouter("metrics-unknown")

	send(h, http.MethodGet, "/api/does-not-exist")

	m := collectMetric(t, httpRequestsTotal, map[string]string{
		"service": "metrics-unknown",
		"path":    "unknown",
	})
	require.NotNil(t, m)
	assert.Equal(t, "404", labelValue(m, "status"))
}

func TestPrometheusMetrics_InFlightReturnsToZero(t *testing.T) {
	h := catalogRouter("metrics-inflight")

	send(h, http.MethodPost, "/api/search/shirt/1")

	m := collectMetric(t, httpRequestsInFlight, map[string]string{"service": "metrics-inflight"})
	require.NotNil(t, m)
	assert.Equal(t, float64(0), m.GetGauge().GetValue())
}

func TestPrometheusMetrics_OutsideChiRouter(t *testing.T) {
	h := PrometheusMetrics("metrics-bare")(okHandler())

	rr := send(h, http.MethodGet, "/health/live")
	assert.Equal(t, http.StatusOK, rr.Code)

	m := collectMetric(t, httpRequestsTotal, map[string]string{
		"service": "metrics-bare",
		"path":    "unknown",
	})
	require.NotNil(t, m)
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// flushHijackWriter implements http.Flusher and http.Hijacker.
type flushHijackWriter struct {
	http.ResponseWriter
	flushed  bool
	hijacked bool
}

func (m *flushHijackWriter) Flush() { m.flushed = true }

func (m *flushHijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	m.hijacked = true
	return nil, nil, nil
}

// bareWriter is an http.ResponseWriter with no optional interfaces.
type bareWriter struct{ header http.Header }

func (b *bareWriter) Header() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}

func (b *bareWriter) Write(p []byte) (int, error) { return len(p), nil }

func (b *bareWriter) WriteHeader(int) {}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	rw := newStatusRecorder(httptest.NewRecorder())

	rw.WriteHeader(http.StatusNoContent)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusNoContent, rw.status)
}

func TestStatusRecorder_WriteImpliesOK(t *testing.T) {
	rw := newStatusRecorder(httptest.NewRecorder())

	n, err := rw.Write([]byte("abc"))
	require.NoError(t, err)
	rw.WriteHeader(http.StatusGatewayTimeout)

	assert.Equal(t, 3, n)
	assert.Equal(t, 3, rw.bytes)
	assert.Equal(t, http.StatusOK, rw.status)
}

func TestStatusRecorder_DelegatesFlushAndHijack(t *testing.T) {
	under := &flushHijackWriter{ResponseWriter: httptest.NewRecorder()}
	rw := newStatusRecorder(under)

	rw.Flush()
	_, _, err := rw.Hijack()

	require.NoError(t, err)
	assert.True(t, under.flushed)
	assert.True(t, under.hijacked)
	assert.Same(t, under, rw.Unwrap())
}

func TestStatusRecorder_WithoutOptionalInterfaces(t *testing.T) {
	rw := newStatusRecorder(&bareWriter{})

	assert.NotPanics(t, rw.Flush)
	_, _, err := rw.Hijack()
	assert.Error(t, err)
}

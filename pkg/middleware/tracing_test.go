package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory exporter as the global provider for
// the duration of the test.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func tracedRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Tracing("catalog"))
	r.Post("/api/search/{query}/{page}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[]}`))
	})
	r.Post("/api/brand/{brand}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/api/kind/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	})
	r.Get("/api/product/{productid}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return r
}

func serveTraced(t *testing.T, method, target string, header http.Header) (*httptest.ResponseRecorder, tracetest.SpanStub) {
	t.Helper()
	exporter := setupTestTracer(t)

	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	tracedRouter().ServeHTTP(rr, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	return rr, spans[0]
}

func spanAttrs(s tracetest.SpanStub) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(s.Attributes))
	for _, kv := range s.Attributes {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_NamesSpanAfterRoute(t *testing.T) {
	_, span := serveTraced(t, http.MethodPost, "/api/search/linen%20shirt/2", nil)

	assert.Equal(t, "POST /api/search/{query}/{page}", span.Name)
	attrs := spanAttrs(span)
	assert.Equal(t, "/api/search/{query}/{page}", attrs["http.route"].AsString())
	assert.Equal(t, "linen shirt", attrs[AttrSearchQuery].AsString())
	assert.Equal(t, "2", attrs["catalog.page"].AsString())
	assert.Equal(t, OutcomeOK, attrs[AttrOutcome].AsString())
	assert.Equal(t, int64(len(`{"products":[]}`)), attrs["http.response_content_length"].AsInt64())
	assert.Equal(t, codes.Unset, span.Status.Code)
}

func TestTracing_EmptyResultIsNotAnError(t *testing.T) {
	_, span := serveTraced(t, http.MethodPost, "/api/brand/Nike", nil)

	attrs := spanAttrs(span)
	assert.Equal(t, "Nike", attrs["catalog.brand"].AsString())
	assert.Equal(t, int64(http.StatusNoContent), attrs["http.status_code"].AsInt64())
	assert.Equal(t, OutcomeNoContent, attrs[AttrOutcome].AsString())
	assert.Equal(t, codes.Unset, span.Status.Code)
}

func TestTracing_BackendTimeoutMarksSpanFailed(t *testing.T) {
	_, span := serveTraced(t, http.MethodPost, "/api/kind/Shoes", nil)

	assert.Equal(t, codes.Error, span.Status.Code)
	assert.Equal(t, OutcomeBackendUnavailable, span.Status.Description)
	assert.Equal(t, "Shoes", spanAttrs(span)["catalog.kind"].AsString())
}

func TestTracing_NotFoundProduct(t *testing.T) {
	_, span := serveTraced(t, http.MethodGet, "/api/product/AWtIjs9d", nil)

	attrs := spanAttrs(span)
	assert.Equal(t, "AWtIjs9d", attrs["catalog.productid"].AsString())
	assert.Equal(t, OutcomeNotFound, attrs[AttrOutcome].AsString())
	assert.Equal(t, codes.Unset, span.Status.Code)
}

func TestTracing_UnmatchedRouteKeepsRawPath(t *testing.T) {
	_, span := serveTraced(t, http.MethodGet, "/api/unknown", nil)

	assert.Equal(t, "GET /api/unknown", span.Name)
	_, hasRoute := spanAttrs(span)["http.route"]
	assert.False(t, hasRoute)
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	header := http.Header{}
	header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	rr, span := serveTraced(t, http.MethodPost, "/api/brand/Adidas", header)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", span.Parent.SpanID().String())
	assert.NotEmpty(t, rr.Header().Get("traceparent"))
}

func TestTracing_ClientIPFromForwardedFor(t *testing.T) {
	header := http.Header{}
	header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	_, span := serveTraced(t, http.MethodPost, "/api/brand/Nike", header)

	assert.Equal(t, "203.0.113.7", spanAttrs(span)["http.client_ip"].AsString())
}

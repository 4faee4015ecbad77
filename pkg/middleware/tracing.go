package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes added on top of the HTTP semantic conventions.
const (
	AttrOutcome     = attribute.Key("catalog.outcome")
	AttrSearchQuery = attribute.Key("catalog.query")
)

// catalogParams are the chi URL parameters copied onto the span.
var catalogParams = []string{"query", "brand", "kind", "gender", "sessionid", "productid", "page"}

// Tracing starts a server span per request, continuing any W3C trace context
// the caller sent. Once routing is done the span is renamed to the chi route
// and tagged with the catalog path parameters and the request Outcome. A
// search engine timeout marks the span as failed like any 5xx.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/willrp/willstores-ws/" + serviceName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPMethod(r.Method),
					semconv.HTTPTarget(r.URL.RequestURI()),
					semconv.HTTPScheme(scheme(r)),
					semconv.UserAgentOriginal(r.UserAgent()),
					attribute.String("http.client_ip", clientIP(r)),
				),
			)
			defer span.End()

			propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			rw := newStatusRecorder(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			if pattern := routePattern(r); pattern != "unknown" {
				span.SetName(r.Method + " " + pattern)
				span.SetAttributes(attribute.String("http.route", pattern))
				span.SetAttributes(routeParams(r)...)
			}

			outcome := Outcome(rw.status)
			span.SetAttributes(
				semconv.HTTPStatusCode(rw.status),
				attribute.Int("http.response_content_length", rw.bytes),
				AttrOutcome.String(outcome),
			)
			if rw.status >= 500 {
				span.SetStatus(codes.Error, outcome)
			}
		})
	}
}

// routeParams returns the matched catalog URL parameters as span attributes.
func routeParams(r *http.Request) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, name := range catalogParams {
		v := chi.URLParam(r, name)
		if v == "" {
			continue
		}
		if name == "query" {
			attrs = append(attrs, AttrSearchQuery.String(v))
			continue
		}
		attrs = append(attrs, attribute.String("catalog."+name, v))
	}
	return attrs
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

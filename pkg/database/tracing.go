package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/willrp/willstores-ws/pkg/tracing"
)

const tracerName = "github.com/willrp/willstores-ws/pkg/database"

// Query describes one round-trip to a data store for tracing and metrics.
type Query struct {
	System    string // e.g. "elasticsearch", "redis"
	Operation string // e.g. "search", "facet.brand"
	Target    string // index or key namespace
	Statement string // request body, may be empty
}

var slowQueryCfg struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowQueryLogging configures slow query detection. Queries exceeding the
// threshold are logged as warnings with operation, target, statement and
// duration. A zero threshold disables slow query logging.
func SetSlowQueryLogging(threshold time.Duration, logger *slog.Logger) {
	slowQueryCfg.mu.Lock()
	defer slowQueryCfg.mu.Unlock()
	slowQueryCfg.threshold = threshold
	slowQueryCfg.logger = logger
}

func getSlowQueryConfig() (time.Duration, *slog.Logger) {
	slowQueryCfg.mu.RLock()
	defer slowQueryCfg.mu.RUnlock()
	return slowQueryCfg.threshold, slowQueryCfg.logger
}

// TraceQuery starts a span for a data store operation and records its
// duration. The returned function must be called when the operation
// completes (typically via defer):
//
//	ctx, end := database.TraceQuery(ctx, database.Query{System: "elasticsearch", Operation: "count", Target: "store_products"})
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, q Query) (context.Context, func(error)) {
	start := time.Now()
	attrs := []attribute.KeyValue{
		attribute.String("db.system", q.System),
		attribute.String("db.operation", q.Operation),
	}
	if q.Target != "" {
		attrs = append(attrs, attribute.String("db.collection.name", q.Target))
	}
	if q.Statement != "" {
		attrs = append(attrs, attribute.String("db.statement", q.Statement))
	}

	ctx, span := tracing.Tracer(tracerName).Start(ctx, q.System+"."+q.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		QueryDuration.WithLabelValues(q.System, q.Operation, status).Observe(elapsed.Seconds())

		if threshold, logger := getSlowQueryConfig(); threshold > 0 && logger != nil && elapsed >= threshold {
			attrs := []any{
				slog.String("system", q.System),
				slog.String("operation", q.Operation),
				slog.String("target", q.Target),
				slog.String("statement", q.Statement),
				slog.Duration("duration", elapsed),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logger.WarnContext(ctx, "slow query detected", attrs...)
		}
	}
}

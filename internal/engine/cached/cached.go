// Package cached serves repeated search requests from Redis. Entries are
// keyed by a generation counter and the request fingerprint, so bumping the
// generation invalidates every entry at once.
package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/willrp/willstores-ws/internal/engine"
	"github.com/willrp/willstores-ws/internal/query"
	"github.com/willrp/willstores-ws/pkg/database"
)

const (
	keyPrefix     = "catalog:"
	generationKey = keyPrefix + "generation"
)

// DefaultTTL bounds how stale a cached response can get when no
// invalidation event arrives.
const DefaultTTL = 5 * time.Minute

var cacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "search_cache_lookups_total",
		Help: "Search response cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)

// Backend wraps an engine.Backend with a Redis response cache. Cache
// failures are logged and fall through to the wrapped backend.
type Backend struct {
	next   engine.Backend
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ engine.Backend = (*Backend)(nil)

// New wraps next with a cache. A non-positive ttl selects DefaultTTL.
func New(next engine.Backend, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Backend {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Backend{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Search returns the cached response for req, or runs it and caches the
// result. Failed searches are never cached.
func (b *Backend) Search(ctx context.Context, req *query.Request) (*query.Response, error) {
	key, err := b.key(ctx, req)
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		b.logger.WarnContext(ctx, "search cache unavailable",
			slog.String("operation", req.Operation),
			slog.String("error", err.Error()),
		)
		return b.next.Search(ctx, req)
	}

	if resp, ok := b.get(ctx, key, req.Operation); ok {
		return resp, nil
	}

	resp, err := b.next.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	b.set(ctx, key, req.Operation, resp)
	return resp, nil
}

// Ping checks the wrapped backend.
func (b *Backend) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

// Invalidate drops every cached response by advancing the generation.
func (b *Backend) Invalidate(ctx context.Context) (err error) {
	ctx, end := database.TraceQuery(ctx, database.Query{System: "redis", Operation: "cache.invalidate", Target: generationKey})
	defer func() { end(err) }()

	gen, err := b.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return fmt.Errorf("redis incr generation: %w", err)
	}
	b.logger.InfoContext(ctx, "search cache invalidated", slog.Int64("generation", gen))
	return nil
}

func (b *Backend) key(ctx context.Context, req *query.Request) (string, error) {
	fp, err := req.Fingerprint()
	if err != nil {
		return "", err
	}

	gen, err := b.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis get generation: %w", err)
	}
	return fmt.Sprintf("%ssearch:%d:%s", keyPrefix, gen, fp), nil
}

func (b *Backend) get(ctx context.Context, key, operation string) (resp *query.Response, ok bool) {
	var err error
	ctx, end := database.TraceQuery(ctx, database.Query{System: "redis", Operation: "cache.get", Target: key})
	defer func() { end(err) }()

	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		err = nil
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		b.logger.WarnContext(ctx, "search cache read failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	resp = &query.Response{}
	if err = json.Unmarshal(data, resp); err != nil {
		cacheLookups.WithLabelValues("error").Inc()
		b.logger.WarnContext(ctx, "search cache entry corrupt",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	cacheLookups.WithLabelValues("hit").Inc()
	return resp, true
}

func (b *Backend) set(ctx context.Context, key, operation string, resp *query.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		b.logger.WarnContext(ctx, "search cache encode failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := b.client.Set(ctx, key, data, b.ttl).Err(); err != nil {
		b.logger.WarnContext(ctx, "search cache write failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
}

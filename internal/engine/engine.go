package engine

import (
	"context"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/query"
)

// Backend executes catalog search requests.
// Implementations may use Elasticsearch, in-memory storage, or wrap another
// Backend with a circuit breaker or a response cache.
type Backend interface {
	// Search runs a request and returns its hits, total and aggregations.
	Search(ctx context.Context, req *query.Request) (*query.Response, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Indexer loads catalog documents into a backend. The crawler owns the
// catalog; indexing is used for seeding and integration tests.
type Indexer interface {
	IndexProducts(ctx context.Context, products []domain.Product) error
	IndexSessions(ctx context.Context, sessions []domain.Session) error
}

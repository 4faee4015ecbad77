package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/engine/memory"
	"github.com/willrp/willstores-ws/internal/query"
	apperrors "github.com/willrp/willstores-ws/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProduct(id, brand, kind string, outlet, retail float64) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        brand + " " + kind,
		Brand:       brand,
		Kind:        kind,
		Gender:      "Women",
		SessionID:   "s-1",
		SessionName: "NEW IN",
		Images:      []string{id + "-1.jpg", id + "-2.jpg"},
		Price:       domain.Price{Outlet: outlet, Retail: retail},
	}
}

func newTestEngine(t *testing.T, products ...domain.Product) *memory.Engine {
	t.Helper()
	eng := memory.New()
	require.NoError(t, eng.IndexProducts(context.Background(), products))
	return eng
}

// failingBackend fails every call with err.
type failingBackend struct{ err error }

func (f failingBackend) Search(context.Context, *query.Request) (*query.Response, error) {
	return nil, f.err
}

func (f failingBackend) Ping(context.Context) error { return f.err }

var errBackendDown = apperrors.BackendUnavailable(errors.New("connection refused"))

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/engine"
	"github.com/willrp/willstores-ws/internal/query"
	"github.com/willrp/willstores-ws/internal/result"
	apperrors "github.com/willrp/willstores-ws/pkg/errors"
	"github.com/willrp/willstores-ws/pkg/pagination"
)

// CatalogService implements the read operations over the product catalog.
type CatalogService struct {
	backend engine.Backend
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(backend engine.Backend, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		backend: backend,
		logger:  logger,
	}
}

func (s *CatalogService) search(ctx context.Context, req *query.Request) (*query.Response, error) {
	resp, err := s.backend.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Operation, err)
	}
	return resp, nil
}

// TotalProductCount returns how many validly priced products the catalog holds.
func (s *CatalogService) TotalProductCount(ctx context.Context) (int, error) {
	resp, err := s.search(ctx, query.ProductsCount())
	if err != nil {
		return 0, err
	}
	return result.Count(resp), nil
}

// SuperDiscounts returns the amount most discounted products, optionally for
// one gender. A non-positive amount selects the default of 10.
func (s *CatalogService) SuperDiscounts(ctx context.Context, gender *string, amount int) ([]domain.Product, error) {
	resp, err := s.search(ctx, query.Discounts(gender, amount))
	if err != nil {
		return nil, err
	}
	return result.Products(resp)
}

// GetTotal returns how many products match fs. Zero is a valid answer.
func (s *CatalogService) GetTotal(ctx context.Context, fs domain.FilterSet) (int, error) {
	resp, err := s.search(ctx, query.Count(fs))
	if err != nil {
		return 0, err
	}
	return result.Count(resp), nil
}

// SelectBrands returns every brand among the products matching fs.
func (s *CatalogService) SelectBrands(ctx context.Context, fs domain.FilterSet) ([]domain.Facet, error) {
	return s.facets(ctx, fs, query.FacetBrand)
}

// SelectKinds returns every kind among the products matching fs.
func (s *CatalogService) SelectKinds(ctx context.Context, fs domain.FilterSet) ([]domain.Facet, error) {
	return s.facets(ctx, fs, query.FacetKind)
}

func (s *CatalogService) facets(ctx context.Context, fs domain.FilterSet, f query.FacetField) ([]domain.Facet, error) {
	resp, err := s.search(ctx, query.Facet(fs, f))
	if err != nil {
		return nil, err
	}
	return result.Facets(resp, f.AggName())
}

// SelectPriceRange returns the lowest and highest outlet price matching fs.
func (s *CatalogService) SelectPriceRange(ctx context.Context, fs domain.FilterSet) (domain.PriceBounds, error) {
	resp, err := s.search(ctx, query.PriceRange(fs))
	if err != nil {
		return domain.PriceBounds{}, err
	}
	return result.PriceBounds(resp)
}

// Select returns one page of the products matching fs.
func (s *CatalogService) Select(ctx context.Context, fs domain.FilterSet, page pagination.Params) ([]domain.Product, error) {
	resp, err := s.search(ctx, query.Select(fs, page))
	if err != nil {
		return nil, err
	}
	return result.Products(resp)
}

// SelectByID returns the product with the given id.
func (s *CatalogService) SelectByID(ctx context.Context, id string) (*domain.Product, error) {
	resp, err := s.search(ctx, query.ByID(id))
	if err != nil {
		return nil, err
	}
	return result.Product(resp, id)
}

// SelectByIDList returns the products whose id is in ids, in backend order.
// Ids that match nothing are skipped.
func (s *CatalogService) SelectByIDList(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, apperrors.NoContent("products")
	}
	resp, err := s.search(ctx, query.ByIDs(ids))
	if err != nil {
		return nil, err
	}
	return result.Products(resp)
}

// SelectByItemList resolves every referenced product and prices the list.
// Each entry adds its product's price times its amount, so a repeated id is
// counted once per entry. Every distinct id must resolve.
func (s *CatalogService) SelectByItemList(ctx context.Context, items []domain.ItemRef) ([]domain.Product, domain.Price, error) {
	if len(items) == 0 {
		return nil, domain.Price{}, apperrors.NoContent("items")
	}

	ids := make([]string, len(items))
	for i, item := range items {
		if item.Amount < 1 {
			return nil, domain.Price{}, apperrors.InvalidInput(fmt.Sprintf("amount of item %s must be at least 1", item.ItemID))
		}
		ids[i] = item.ItemID
	}

	resp, err := s.search(ctx, query.ByIDs(ids))
	if err != nil {
		return nil, domain.Price{}, err
	}
	products, err := result.Products(resp)
	if err != nil {
		return nil, domain.Price{}, err
	}

	requested := len(query.Distinct(ids))
	if len(products) != requested {
		s.logger.WarnContext(ctx, "item list partially resolved",
			slog.Int("requested", requested),
			slog.Int("resolved", len(products)),
		)
		return nil, domain.Price{}, apperrors.Validation(
			fmt.Sprintf("requested %d distinct items, resolved %d", requested, len(products)))
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var total domain.Price
	for _, item := range items {
		p, ok := byID[item.ItemID]
		if !ok {
			return nil, domain.Price{}, apperrors.Validation(fmt.Sprintf("item %s was not resolved", item.ItemID))
		}
		total.Outlet += p.Price.Outlet * float64(item.Amount)
		total.Retail += p.Price.Retail * float64(item.Amount)
	}

	return products, total.Rounded(), nil
}

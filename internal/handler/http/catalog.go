package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/service"
	"github.com/willrp/willstores-ws/pkg/httputil"
	"github.com/willrp/willstores-ws/pkg/pagination"
	"github.com/willrp/willstores-ws/pkg/validator"
)

// CatalogHandler handles HTTP requests for the catalog endpoints.
type CatalogHandler struct {
	catalog  *service.CatalogService
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(catalog *service.CatalogService, sessions *service.SessionService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		sessions: sessions,
		logger:   logger,
	}
}

// Start handles GET /api/start
func (h *CatalogHandler) Start(w http.ResponseWriter, r *http.Request) {
	count, err := h.catalog.TotalProductCount(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: CountResponse{Count: count}})
}

// Gender handles POST /api/gender/{gender}
func (h *CatalogHandler) Gender(w http.ResponseWriter, r *http.Request) {
	var req GenderRequest
	if !decode(w, r, &req) {
		return
	}
	gender := pathParam(r, "gender")
	amount := 0
	if req.Amount != nil {
		amount = *req.Amount
	}
	fs := domain.FilterSet{Gender: &gender}

	var (
		discounts     []domain.Product
		sessions      []domain.SessionTotal
		brands, kinds []domain.Facet
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		discounts, err = h.catalog.SuperDiscounts(ctx, &gender, amount)
		return err
	})
	g.Go(func() (err error) {
		sessions, err = h.sessions.ListSessions(ctx, &gender, nil)
		return err
	})
	g.Go(func() (err error) {
		brands, err = h.catalog.SelectBrands(ctx, fs)
		return err
	})
	g.Go(func() (err error) {
		kinds, err = h.catalog.SelectKinds(ctx, fs)
		return err
	})
	if err := g.Wait(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: GenderResponse{
		Discounts: toProductMinViews(discounts),
		Sessions:  toSessionViews(sessions),
		Brands:    toBrandViews(brands),
		Kinds:     toKindViews(kinds),
	}})
}

// Search handles POST /api/search/{query}
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := pathParam(r, "query")
	h.summary(w, r, domain.FilterSet{Query: &q})
}

// SearchProducts handles POST /api/search/{query}/{page}
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := pathParam(r, "query")
	h.products(w, r, domain.FilterSet{Query: &q})
}

// Brand handles POST /api/brand/{brand}
func (h *CatalogHandler) Brand(w http.ResponseWriter, r *http.Request) {
	brand := pathParam(r, "brand")
	h.summary(w, r, domain.FilterSet{Brand: &brand})
}

// BrandProducts handles POST /api/brand/{brand}/{page}
func (h *CatalogHandler) BrandProducts(w http.ResponseWriter, r *http.Request) {
	brand := pathParam(r, "brand")
	h.products(w, r, domain.FilterSet{Brand: &brand})
}

// Kind handles POST /api/kind/{kind}
func (h *CatalogHandler) Kind(w http.ResponseWriter, r *http.Request) {
	kind := pathParam(r, "kind")
	h.summary(w, r, domain.FilterSet{Kind: &kind})
}

// KindProducts handles POST /api/kind/{kind}/{page}
func (h *CatalogHandler) KindProducts(w http.ResponseWriter, r *http.Request) {
	kind := pathParam(r, "kind")
	h.products(w, r, domain.FilterSet{Kind: &kind})
}

// Session handles POST /api/session/{sessionid}
func (h *CatalogHandler) Session(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}
	id := pathParam(r, "sessionid")

	session, err := h.sessions.GetSessionByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	path := domain.FilterSet{SessionID: &id}
	fs := req.filterSet(path)

	var (
		siblings      []domain.SessionTotal
		total         int
		brands, kinds []domain.Facet
		bounds        domain.PriceBounds
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		siblings, err = h.sessions.ListSessions(ctx, &session.Gender, nil)
		return err
	})
	g.Go(func() (err error) {
		total, err = h.catalog.GetTotal(ctx, fs)
		return err
	})
	g.Go(func() (err error) {
		brands, err = h.catalog.SelectBrands(ctx, fs)
		return err
	})
	g.Go(func() (err error) {
		kinds, err = h.catalog.SelectKinds(ctx, fs)
		return err
	})
	g.Go(func() (err error) {
		bounds, err = h.catalog.SelectPriceRange(ctx, path)
		return err
	})
	if err := g.Wait(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SessionResponse{
		Sessions:   toSessionViews(siblings),
		Total:      total,
		Brands:     toBrandViews(brands),
		Kinds:      toKindViews(kinds),
		PriceRange: PriceRangeView{Min: bounds.Min, Max: bounds.Max},
	}})
}

// SessionProducts handles POST /api/session/{sessionid}/{page}
func (h *CatalogHandler) SessionProducts(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "sessionid")
	h.products(w, r, domain.FilterSet{SessionID: &id})
}

// Product handles GET /api/product/{productid}
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.SelectByID(r.Context(), pathParam(r, "productid"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toProductView(*product)})
}

// ProductList handles POST /api/product/list
func (h *CatalogHandler) ProductList(w http.ResponseWriter, r *http.Request) {
	var req ProductListRequest
	if !decode(w, r, &req) {
		return
	}

	products, err := h.catalog.SelectByIDList(r.Context(), req.IDList)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ProductsResponse{Products: toProductMinViews(products)}})
}

// ProductTotal handles POST /api/product/total
func (h *CatalogHandler) ProductTotal(w http.ResponseWriter, r *http.Request) {
	var req ItemListRequest
	if !decode(w, r, &req) {
		return
	}

	_, total, err := h.catalog.SelectByItemList(r.Context(), req.itemRefs())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: TotalResponse{Total: toPriceView(total)}})
}

// summary answers the search, brand and kind pages. The reads run
// concurrently and the first failure decides the response. A price range in
// the body is echoed back; otherwise it is computed from the path filter alone.
func (h *CatalogHandler) summary(w http.ResponseWriter, r *http.Request, path domain.FilterSet) {
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}
	fs := req.filterSet(path)

	var (
		total         int
		brands, kinds []domain.Facet
		bounds        domain.PriceBounds
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		total, err = h.catalog.GetTotal(ctx, fs)
		return err
	})
	g.Go(func() (err error) {
		brands, err = h.catalog.SelectBrands(ctx, fs)
		return err
	})
	g.Go(func() (err error) {
		kinds, err = h.catalog.SelectKinds(ctx, fs)
		return err
	})
	if req.PriceRange != nil {
		bounds = domain.PriceBounds{Min: req.PriceRange.Min, Max: req.PriceRange.Max}
	} else {
		g.Go(func() (err error) {
			bounds, err = h.catalog.SelectPriceRange(ctx, path)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: SummaryResponse{
		Total:      total,
		Brands:     toBrandViews(brands),
		Kinds:      toKindViews(kinds),
		PriceRange: PriceRangeView{Min: bounds.Min, Max: bounds.Max},
	}})
}

// products answers the paginated listing endpoints.
func (h *CatalogHandler) products(w http.ResponseWriter, r *http.Request, path domain.FilterSet) {
	rawPage := chi.URLParam(r, "page")
	page, err := pagination.Parse(rawPage, "")
	if err != nil {
		httputil.WriteInvalidParameter(w, "page", rawPage)
		return
	}

	var req SearchProductsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PageSize != nil {
		page, err = pagination.New(page.Page, *req.PageSize)
		if err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}

	products, err := h.catalog.Select(r.Context(), req.filterSet(path), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ProductsResponse{Products: toProductMinViews(products)}})
}

// decode reads and validates an optional JSON body into dst. It writes the
// 400 response itself and reports false when the body is rejected.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}

// pathParam returns the decoded value of a path parameter.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

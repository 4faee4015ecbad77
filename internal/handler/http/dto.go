package http

import (
	"github.com/willrp/willstores-ws/internal/domain"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// --- Request DTOs ---

// PriceRangeRequest is an inclusive bound on outlet price.
type PriceRangeRequest struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"gte=0,gtefield=Min"`
}

// SearchRequest is the optional filter body shared by the composite
// endpoints. Values taken from the URL path take precedence over the body.
type SearchRequest struct {
	Gender      *string            `json:"gender"`
	SessionID   *string            `json:"sessionid"`
	SessionName *string            `json:"sessionname"`
	Brand       *string            `json:"brand"`
	Kind        *string            `json:"kind"`
	PriceRange  *PriceRangeRequest `json:"pricerange"`
}

// SearchProductsRequest adds a page size to SearchRequest.
type SearchProductsRequest struct {
	SearchRequest
	PageSize *int `json:"pagesize" validate:"omitempty,min=1"`
}

// GenderRequest is the optional body of the gender endpoint.
type GenderRequest struct {
	Amount *int `json:"amount" validate:"omitempty,min=1"`
}

// ProductListRequest asks for a set of products by id.
type ProductListRequest struct {
	IDList []string `json:"id_list" validate:"required,min=1,dive,required"`
}

// ItemRequest is one line of a priced item list.
type ItemRequest struct {
	ItemID string `json:"item_id" validate:"required"`
	Amount int    `json:"amount" validate:"min=1"`
}

// ItemListRequest asks for the total price of a list of items.
type ItemListRequest struct {
	ItemList []ItemRequest `json:"item_list" validate:"required,min=1,dive"`
}

// filterSet merges the body filters into base, which already carries the
// path filter.
func (r SearchRequest) filterSet(base domain.FilterSet) domain.FilterSet {
	fs := domain.FilterSet{
		Query:       base.Query,
		Gender:      r.Gender,
		SessionID:   r.SessionID,
		SessionName: r.SessionName,
		Brand:       r.Brand,
		Kind:        r.Kind,
	}
	if base.Gender != nil {
		fs.Gender = base.Gender
	}
	if base.SessionID != nil {
		fs.SessionID = base.SessionID
	}
	if base.Brand != nil {
		fs.Brand = base.Brand
	}
	if base.Kind != nil {
		fs.Kind = base.Kind
	}
	if r.PriceRange != nil {
		fs.PriceRange = &domain.PriceRange{Min: r.PriceRange.Min, Max: r.PriceRange.Max}
	}
	return fs
}

func (r ItemListRequest) itemRefs() []domain.ItemRef {
	refs := make([]domain.ItemRef, len(r.ItemList))
	for i, it := range r.ItemList {
		refs[i] = domain.ItemRef{ItemID: it.ItemID, Amount: it.Amount}
	}
	return refs
}

// --- Response views ---

// PriceView is a price as the storefront renders it.
type PriceView struct {
	Outlet float64 `json:"outlet"`
	Retail float64 `json:"retail"`
	Symbol string  `json:"symbol"`
}

// ProductView is the full product document.
type ProductView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Link        string    `json:"link"`
	Kind        string    `json:"kind"`
	Brand       string    `json:"brand"`
	Details     []string  `json:"details"`
	Care        string    `json:"care"`
	About       string    `json:"about"`
	Images      []string  `json:"images"`
	SessionID   string    `json:"sessionid"`
	SessionName string    `json:"sessionname"`
	Gender      string    `json:"gender"`
	Price       PriceView `json:"price"`
}

// ProductMinView is the product card shown in listings.
type ProductMinView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Image    string    `json:"image"`
	Price    PriceView `json:"price"`
	Discount float64   `json:"discount"`
}

// SessionView is a session with its product total.
type SessionView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Image  string `json:"image"`
	Total  int    `json:"total"`
}

// BrandView is one brand facet.
type BrandView struct {
	Brand  string `json:"brand"`
	Amount int    `json:"amount"`
}

// KindView is one kind facet.
type KindView struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount"`
}

// PriceRangeView is the price range of a match set.
type PriceRangeView struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func toPriceView(p domain.Price) PriceView {
	return PriceView{Outlet: p.Outlet, Retail: p.Retail, Symbol: domain.CurrencySymbol}
}

func toProductView(p domain.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Link:        p.Link,
		Kind:        p.Kind,
		Brand:       p.Brand,
		Details:     p.Details,
		Care:        p.Care,
		About:       p.About,
		Images:      p.Images,
		SessionID:   p.SessionID,
		SessionName: p.SessionName,
		Gender:      p.Gender,
		Price:       toPriceView(p.Price),
	}
}

func toProductMinViews(products []domain.Product) []ProductMinView {
	out := make([]ProductMinView, len(products))
	for i, p := range products {
		out[i] = ProductMinView{
			ID:       p.ID,
			Name:     p.Name,
			Image:    p.MainImage(),
			Price:    toPriceView(p.Price),
			Discount: discount(p.Price),
		}
	}
	return out
}

// discount reports zero for a product without a retail price, which only
// fetch-by-id can return.
func discount(p domain.Price) float64 {
	if p.Retail <= 0 {
		return 0
	}
	return p.Discount()
}

func toSessionViews(sessions []domain.SessionTotal) []SessionView {
	out := make([]SessionView, len(sessions))
	for i, s := range sessions {
		out[i] = SessionView{ID: s.ID, Name: s.Name, Gender: s.Gender, Image: s.Image, Total: s.Total}
	}
	return out
}

func toBrandViews(facets []domain.Facet) []BrandView {
	out := make([]BrandView, len(facets))
	for i, f := range facets {
		out[i] = BrandView{Brand: f.Label, Amount: f.Amount}
	}
	return out
}

func toKindViews(facets []domain.Facet) []KindView {
	out := make([]KindView, len(facets))
	for i, f := range facets {
		out[i] = KindView{Kind: f.Label, Amount: f.Amount}
	}
	return out
}

// CountResponse is the body of the start endpoint.
type CountResponse struct {
	Count int `json:"count"`
}

// GenderResponse is the landing data for one gender.
type GenderResponse struct {
	Discounts []ProductMinView `json:"discounts"`
	Sessions  []SessionView    `json:"sessions"`
	Brands    []BrandView      `json:"brands"`
	Kinds     []KindView       `json:"kinds"`
}

// SummaryResponse describes the match set of a search, brand or kind page.
type SummaryResponse struct {
	Total      int            `json:"total"`
	Brands     []BrandView    `json:"brands"`
	Kinds      []KindView     `json:"kinds"`
	PriceRange PriceRangeView `json:"pricerange"`
}

// SessionResponse describes one session page and its sibling sessions.
type SessionResponse struct {
	Sessions   []SessionView  `json:"sessions"`
	Total      int            `json:"total"`
	Brands     []BrandView    `json:"brands"`
	Kinds      []KindView     `json:"kinds"`
	PriceRange PriceRangeView `json:"pricerange"`
}

// ProductsResponse is a page or list of product cards.
type ProductsResponse struct {
	Products []ProductMinView `json:"products"`
}

// TotalResponse is the summed price of an item list.
type TotalResponse struct {
	Total PriceView `json:"total"`
}

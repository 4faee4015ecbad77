package domain

import "math"

// CurrencySymbol is attached to every serialized price.
const CurrencySymbol = "£"

// Price is the outlet (discounted) and retail price of a product.
type Price struct {
	Outlet float64 `json:"outlet"`
	Retail float64 `json:"retail"`
}

// Discount returns the percentage reduction of outlet relative to retail,
// rounded to 2 decimals. Retail must be positive. A negative result means
// the outlet price is above retail.
func (p Price) Discount() float64 {
	return Round2((1.0 - p.Outlet/p.Retail) * 100.0)
}

// Rounded returns the price with both components rounded to 2 decimals.
func (p Price) Rounded() Price {
	return Price{Outlet: Round2(p.Outlet), Retail: Round2(p.Retail)}
}

// Product is a catalog item as stored in the products index.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Link        string   `json:"link"`
	Kind        string   `json:"kind"`
	Brand       string   `json:"brand"`
	Details     []string `json:"details"`
	Care        string   `json:"care"`
	About       string   `json:"about"`
	Images      []string `json:"images"`
	SessionID   string   `json:"sessionid"`
	SessionName string   `json:"sessionname"`
	Gender      string   `json:"gender"`
	Price       Price    `json:"price"`
	StoreName   string   `json:"storename"`
}

// MainImage returns the first image, or "" when the product has none.
func (p Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Session is a grouping of products as crawled from a store section.
type Session struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Image     string `json:"image"`
	Pos       int    `json:"pos"`
	StoreName string `json:"storename"`
}

// SessionTotal is a session annotated with the number of products whose
// sessionid equals the session's id.
type SessionTotal struct {
	Session
	Total int `json:"total"`
}

// Facet is one distinct field value and how many matching products carry it.
type Facet struct {
	Label  string
	Amount int
}

// PriceBounds is the lowest and highest outlet price of a match set.
type PriceBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ItemRef asks for Amount units of the product with id ItemID.
type ItemRef struct {
	ItemID string `json:"item_id"`
	Amount int    `json:"amount"`
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package query

import (
	"math"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/pkg/pagination"
)

// Aggregation names shared by composer and result interpreter.
const (
	AggBrands   = "brands"
	AggKinds    = "kinds"
	AggMinPrice = "minprice"
	AggMaxPrice = "maxprice"
	AggSessions = "sessions"
)

const (
	// MaxBuckets lets a terms aggregation return every distinct value.
	MaxBuckets = math.MaxInt32
	// SessionLimit bounds the fetch-all session listing.
	SessionLimit = 10000
	// DefaultDiscountAmount is how many products a discount ranking returns.
	DefaultDiscountAmount = 10
)

// FacetField selects which product label a facet request groups by.
type FacetField string

const (
	FacetBrand FacetField = "brand"
	FacetKind  FacetField = "kind"
)

// AggName returns the aggregation name the facet is requested under.
func (f FacetField) AggName() string {
	if f == FacetKind {
		return AggKinds
	}
	return AggBrands
}

func (f FacetField) exactField() string {
	if f == FacetKind {
		return FieldKindExact
	}
	return FieldBrandExact
}

// Count requests only the number of products matching fs.
func Count(fs domain.FilterSet) *Request {
	return &Request{
		Operation: "count",
		Target:    TargetProducts,
		Clauses:   BuildClauses(fs),
		Size:      0,
	}
}

// Facet requests every distinct brand or kind of the products matching fs.
func Facet(fs domain.FilterSet, f FacetField) *Request {
	return &Request{
		Operation: "facet." + string(f),
		Target:    TargetProducts,
		Clauses:   BuildClauses(fs),
		Size:      0,
		Aggregations: []Aggregation{
			{Name: f.AggName(), Kind: AggTerms, Field: f.exactField(), Size: MaxBuckets},
		},
	}
}

// PriceRange requests the lowest and highest outlet price matching fs. One
// hit is fetched so an empty match set can be told apart from zero prices.
func PriceRange(fs domain.FilterSet) *Request {
	return &Request{
		Operation: "pricerange",
		Target:    TargetProducts,
		Clauses:   BuildClauses(fs),
		Size:      1,
		Aggregations: []Aggregation{
			{Name: AggMinPrice, Kind: AggMin, Field: FieldPriceOutlet},
			{Name: AggMaxPrice, Kind: AggMax, Field: FieldPriceOutlet},
		},
	}
}

// Select requests one page of products matching fs.
func Select(fs domain.FilterSet, page pagination.Params) *Request {
	return &Request{
		Operation: "select",
		Target:    TargetProducts,
		Clauses:   BuildClauses(fs),
		From:      page.Offset,
		Size:      page.PageSize,
	}
}

// Discounts requests the amount most discounted valid products, optionally
// for one gender. A non-positive amount selects DefaultDiscountAmount.
func Discounts(gender *string, amount int) *Request {
	if amount <= 0 {
		amount = DefaultDiscountAmount
	}
	var clauses []Clause
	if gender != nil {
		clauses = append(clauses, GenderTerm(*gender))
	}
	clauses = append(clauses, ValidProductGuard()...)

	return &Request{
		Operation: "discounts",
		Target:    TargetProducts,
		Clauses:   clauses,
		Size:      amount,
		Sort:      []Sort{{By: ByDiscount, Desc: true}},
	}
}

// ProductsCount requests the number of validly priced products.
func ProductsCount() *Request {
	return &Request{
		Operation: "products.count",
		Target:    TargetProducts,
		Clauses:   ValidProductGuard(),
		Size:      0,
	}
}

// ByID requests the product with the given id.
func ByID(id string) *Request {
	return &Request{
		Operation: "product.byid",
		Target:    TargetProducts,
		Clauses:   []Clause{IDs{Values: []string{id}}},
		Size:      1,
	}
}

// ByIDs requests the products with any of the given ids.
func ByIDs(ids []string) *Request {
	distinct := Distinct(ids)
	return &Request{
		Operation: "product.byids",
		Target:    TargetProducts,
		Clauses:   []Clause{IDs{Values: distinct}},
		Size:      len(distinct),
	}
}

// Sessions requests every session, optionally filtered by gender and name.
func Sessions(gender, name *string) *Request {
	var clauses []Clause
	if gender != nil {
		clauses = append(clauses, GenderTerm(*gender))
	}
	if name != nil {
		clauses = append(clauses, Phrase{Field: FieldName, Text: *name})
	}
	return &Request{
		Operation: "sessions",
		Target:    TargetSessions,
		Clauses:   clauses,
		Size:      SessionLimit,
	}
}

// SessionByID requests the session with the given id.
func SessionByID(id string) *Request {
	return &Request{
		Operation: "session.byid",
		Target:    TargetSessions,
		Clauses:   []Clause{IDs{Values: []string{id}}},
		Size:      1,
	}
}

// SessionTotals requests, in one round-trip, how many products belong to
// each of the given sessions. Sessions without products have no bucket.
func SessionTotals(ids []string) *Request {
	distinct := Distinct(ids)
	return &Request{
		Operation: "session.totals",
		Target:    TargetProducts,
		Clauses:   []Clause{Terms{Field: FieldSessionIDExact, Values: distinct}},
		Size:      0,
		Aggregations: []Aggregation{
			{Name: AggSessions, Kind: AggTerms, Field: FieldSessionIDExact, Size: len(distinct)},
		},
	}
}

// Distinct returns ids without duplicates, keeping first occurrences in order.
func Distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

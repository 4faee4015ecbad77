package query

import (
	"strings"

	"github.com/willrp/willstores-ws/internal/domain"
)

// Product and session document fields.
const (
	FieldName           = "name"
	FieldKind           = "kind"
	FieldBrand          = "brand"
	FieldGender         = "gender"
	FieldSessionName    = "sessionname"
	FieldSessionIDExact = "sessionid.keyword"
	FieldBrandExact     = "brand.keyword"
	FieldKindExact      = "kind.keyword"
	FieldPriceOutlet    = "price.outlet"
	FieldPriceRetail    = "price.retail"
)

// SearchFields are the fields free-text queries are matched against.
var SearchFields = []string{FieldKind, FieldBrand, FieldGender, FieldName}

// BuildClauses converts a filter set into ordered clauses. Without an
// explicit price range the valid-product guard is appended instead.
func BuildClauses(fs domain.FilterSet) []Clause {
	var clauses []Clause

	if fs.Query != nil {
		clauses = append(clauses, MultiMatch{Fields: SearchFields, Text: *fs.Query})
	}
	if fs.Gender != nil {
		clauses = append(clauses, GenderTerm(*fs.Gender))
	}
	if fs.SessionID != nil {
		clauses = append(clauses, Term{Field: FieldSessionIDExact, Value: *fs.SessionID})
	}
	if fs.SessionName != nil {
		clauses = append(clauses, Phrase{Field: FieldSessionName, Text: *fs.SessionName})
	}
	if fs.Brand != nil {
		clauses = append(clauses, Phrase{Field: FieldBrand, Text: *fs.Brand})
	}
	if fs.Kind != nil {
		clauses = append(clauses, Phrase{Field: FieldKind, Text: *fs.Kind})
	}

	if fs.PriceRange != nil {
		lo, hi := fs.PriceRange.Min, fs.PriceRange.Max
		clauses = append(clauses, Range{Field: FieldPriceOutlet, GTE: &lo, LTE: &hi})
	} else {
		clauses = append(clauses, ValidProductGuard()...)
	}

	return clauses
}

// GenderTerm matches the gender field case-insensitively. Gender is indexed
// analyzed, so its terms are lower case.
func GenderTerm(gender string) Term {
	return Term{Field: FieldGender, Value: strings.ToLower(gender)}
}

// ValidProductGuard excludes zero or placeholder priced products.
func ValidProductGuard() []Clause {
	zero := 0.0
	return []Clause{
		Range{Field: FieldPriceRetail, GT: &zero},
		Range{Field: FieldPriceOutlet, GT: &zero},
	}
}

package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/pkg/pagination"
)

func TestCount(t *testing.T) {
	r := Count(domain.FilterSet{Brand: domain.Ptr("X")})

	assert.Equal(t, TargetProducts, r.Target)
	assert.Equal(t, 0, r.Size)
	assert.Empty(t, r.Aggregations)
	assert.Len(t, r.Clauses, 3)
}

func TestFacet(t *testing.T) {
	tests := []struct {
		facet FacetField
		name  string
		field string
	}{
		{FacetBrand, "brands", "brand.keyword"},
		{FacetKind, "kinds", "kind.keyword"},
	}

	for _, tt := range tests {
		t.Run(string(tt.facet), func(t *testing.T) {
			r := Facet(domain.FilterSet{}, tt.facet)

			assert.Equal(t, 0, r.Size)
			require.Len(t, r.Aggregations, 1)
			agg := r.Aggregations[0]
			assert.Equal(t, tt.name, agg.Name)
			assert.Equal(t, AggTerms, agg.Kind)
			assert.Equal(t, tt.field, agg.Field)
			assert.Equal(t, math.MaxInt32, agg.Size)
		})
	}
}

func TestPriceRange(t *testing.T) {
	r := PriceRange(domain.FilterSet{})

	assert.Equal(t, 1, r.Size)
	assert.Equal(t, []Aggregation{
		{Name: "minprice", Kind: AggMin, Field: "price.outlet"},
		{Name: "maxprice", Kind: AggMax, Field: "price.outlet"},
	}, r.Aggregations)
}

func TestSelect_Window(t *testing.T) {
	page, err := pagination.New(3, 7)
	require.NoError(t, err)

	r := Select(domain.FilterSet{}, page)

	assert.Equal(t, 14, r.From)
	assert.Equal(t, 7, r.Size)
}

func TestSelect_DefaultWindow(t *testing.T) {
	r := Select(domain.FilterSet{}, pagination.DefaultParams())

	assert.Equal(t, 0, r.From)
	assert.Equal(t, 10, r.Size)
}

func TestDiscounts(t *testing.T) {
	r := Discounts(domain.Ptr("Women"), 3)

	assert.Equal(t, 3, r.Size)
	assert.Equal(t, []Sort{{By: ByDiscount, Desc: true}}, r.Sort)
	require.Len(t, r.Clauses, 3)
	assert.Equal(t, Term{Field: FieldGender, Value: "women"}, r.Clauses[0])
	assert.IsType(t, Range{}, r.Clauses[1])
	assert.IsType(t, Range{}, r.Clauses[2])
}

func TestDiscounts_DefaultAmountNoGender(t *testing.T) {
	r := Discounts(nil, 0)

	assert.Equal(t, DefaultDiscountAmount, r.Size)
	assert.Len(t, r.Clauses, 2)
}

func TestProductsCount(t *testing.T) {
	r := ProductsCount()

	assert.Equal(t, 0, r.Size)
	assert.Equal(t, ValidProductGuard(), r.Clauses)
}

func TestByIDs_Deduplicates(t *testing.T) {
	r := ByIDs([]string{"a", "b", "a", "c"})

	assert.Equal(t, 3, r.Size)
	assert.Equal(t, []Clause{IDs{Values: []string{"a", "b", "c"}}}, r.Clauses)
}

func TestByID(t *testing.T) {
	r := ByID("a")

	assert.Equal(t, 1, r.Size)
	assert.Equal(t, []Clause{IDs{Values: []string{"a"}}}, r.Clauses)
}

func TestSessions(t *testing.T) {
	r := Sessions(domain.Ptr("Men"), domain.Ptr("SHIRTS"))

	assert.Equal(t, TargetSessions, r.Target)
	assert.Equal(t, SessionLimit, r.Size)
	assert.Equal(t, []Clause{
		Term{Field: FieldGender, Value: "men"},
		Phrase{Field: FieldName, Text: "SHIRTS"},
	}, r.Clauses)
}

func TestSessions_NoFilters(t *testing.T) {
	r := Sessions(nil, nil)
	assert.Empty(t, r.Clauses)
}

func TestSessionByID(t *testing.T) {
	r := SessionByID("s1")

	assert.Equal(t, TargetSessions, r.Target)
	assert.Equal(t, 1, r.Size)
}

func TestSessionTotals(t *testing.T) {
	r := SessionTotals([]string{"s1", "s2", "s1"})

	assert.Equal(t, TargetProducts, r.Target)
	assert.Equal(t, 0, r.Size)
	assert.Equal(t, []Clause{Terms{Field: FieldSessionIDExact, Values: []string{"s1", "s2"}}}, r.Clauses)
	assert.Equal(t, []Aggregation{{Name: AggSessions, Kind: AggTerms, Field: FieldSessionIDExact, Size: 2}}, r.Aggregations)
}

func TestComposer_IsDeterministic(t *testing.T) {
	fs := domain.FilterSet{Query: domain.Ptr("shirt"), Kind: domain.Ptr("Polo")}

	a, err := Facet(fs, FacetKind).Fingerprint()
	require.NoError(t, err)
	b, err := Facet(fs, FacetKind).Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFingerprint_DistinguishesClauseTypes(t *testing.T) {
	phrase := &Request{Target: TargetProducts, Clauses: []Clause{Phrase{Field: "brand", Text: "X"}}}
	term := &Request{Target: TargetProducts, Clauses: []Clause{Term{Field: "brand", Value: "X"}}}

	a, err := phrase.Fingerprint()
	require.NoError(t, err)
	b, err := term.Fingerprint()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFingerprint_DistinguishesWindows(t *testing.T) {
	p1, _ := pagination.New(1, 10)
	p2, _ := pagination.New(2, 10)

	a, _ := Select(domain.FilterSet{}, p1).Fingerprint()
	b, _ := Select(domain.FilterSet{}, p2).Fingerprint()

	assert.NotEqual(t, a, b)
}

package domain

// PriceRange is an inclusive bound on outlet price.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterSet is the optional constraint set of one catalog query. A nil field
// is absent. Without a PriceRange, only products priced above zero match.
type FilterSet struct {
	Query       *string
	Gender      *string
	SessionID   *string
	SessionName *string
	Brand       *string
	Kind        *string
	PriceRange  *PriceRange
}

// Ptr returns a pointer to v, for building filter sets inline.
func Ptr[T any](v T) *T {
	return &v
}

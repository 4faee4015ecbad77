package pagination

import (
	"fmt"
	"strconv"
)

// DefaultPageSize is used when a caller does not ask for a specific page size.
const DefaultPageSize = 10

// Params holds a 1-based page window over an ordered result set.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"pagesize"`
	Offset   int `json:"-"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{
		Page:     1,
		PageSize: DefaultPageSize,
		Offset:   0,
	}
}

// New builds a window for the given page. A non-positive pageSize falls back
// to DefaultPageSize. Pages start at 1.
func New(page, pageSize int) (Params, error) {
	if page < 1 {
		return Params{}, fmt.Errorf("page must be at least 1, got %d", page)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Params{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}, nil
}

// Parse builds a window from raw path or query values. An empty pageSize
// selects the default.
func Parse(page, pageSize string) (Params, error) {
	p, err := strconv.Atoi(page)
	if err != nil {
		return Params{}, fmt.Errorf("page %q is not a number", page)
	}
	size := 0
	if pageSize != "" {
		size, err = strconv.Atoi(pageSize)
		if err != nil || size < 1 {
			return Params{}, fmt.Errorf("pagesize %q must be a positive number", pageSize)
		}
	}
	return New(p, size)
}

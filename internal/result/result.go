// Package result turns backend responses into catalog values and applies the
// empty-result policy: an empty listing is NoContent, a missing single entity
// is NotFound, and a zero count is a valid answer.
package result

import (
	"encoding/json"
	"fmt"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/query"
	apperrors "github.com/willrp/willstores-ws/pkg/errors"
)

// Count returns the match total verbatim.
func Count(resp *query.Response) int {
	return resp.Total
}

// Facets returns the buckets of the named terms aggregation in backend order.
func Facets(resp *query.Response, agg string) ([]domain.Facet, error) {
	buckets := resp.Aggregations[agg].Buckets
	if len(buckets) == 0 {
		return nil, apperrors.NoContent(agg)
	}

	facets := make([]domain.Facet, len(buckets))
	for i, b := range buckets {
		facets[i] = domain.Facet{Label: b.Key, Amount: b.Count}
	}
	return facets, nil
}

// PriceBounds returns the min/max outlet price aggregations rounded to 2
// decimals.
func PriceBounds(resp *query.Response) (domain.PriceBounds, error) {
	if resp.Total == 0 || len(resp.Hits) == 0 {
		return domain.PriceBounds{}, apperrors.NoContent("pricerange")
	}

	lo := resp.Aggregations[query.AggMinPrice].Value
	hi := resp.Aggregations[query.AggMaxPrice].Value
	if lo == nil || hi == nil {
		return domain.PriceBounds{}, fmt.Errorf("price bounds: matched %d products but min/max aggregations are empty", resp.Total)
	}
	return domain.PriceBounds{Min: domain.Round2(*lo), Max: domain.Round2(*hi)}, nil
}

// Products decodes every hit. An empty hit list is NoContent.
func Products(resp *query.Response) ([]domain.Product, error) {
	if len(resp.Hits) == 0 {
		return nil, apperrors.NoContent("products")
	}

	products := make([]domain.Product, len(resp.Hits))
	for i, h := range resp.Hits {
		p, err := decodeProduct(h)
		if err != nil {
			return nil, err
		}
		products[i] = p
	}
	return products, nil
}

// Product decodes the first hit. An empty hit list is NotFound for id.
func Product(resp *query.Response, id string) (*domain.Product, error) {
	if len(resp.Hits) == 0 {
		return nil, apperrors.NotFound("product", id)
	}
	p, err := decodeProduct(resp.Hits[0])
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Sessions decodes every hit. An empty hit list is NoContent.
func Sessions(resp *query.Response) ([]domain.Session, error) {
	if len(resp.Hits) == 0 {
		return nil, apperrors.NoContent("sessions")
	}

	sessions := make([]domain.Session, len(resp.Hits))
	for i, h := range resp.Hits {
		s, err := decodeSession(h)
		if err != nil {
			return nil, err
		}
		sessions[i] = s
	}
	return sessions, nil
}

// Session decodes the first hit. An empty hit list is NotFound for id.
func Session(resp *query.Response, id string) (*domain.Session, error) {
	if len(resp.Hits) == 0 {
		return nil, apperrors.NotFound("session", id)
	}
	s, err := decodeSession(resp.Hits[0])
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// BucketCounts maps each bucket key of the named aggregation to its count.
// Absent keys read as zero.
func BucketCounts(resp *query.Response, agg string) map[string]int {
	buckets := resp.Aggregations[agg].Buckets
	counts := make(map[string]int, len(buckets))
	for _, b := range buckets {
		counts[b.Key] = b.Count
	}
	return counts
}

func decodeProduct(h query.Hit) (domain.Product, error) {
	var p domain.Product
	if err := json.Unmarshal(h.Source, &p); err != nil {
		return domain.Product{}, fmt.Errorf("decode product %s: %w", h.ID, err)
	}
	p.ID = h.ID
	return p, nil
}

func decodeSession(h query.Hit) (domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(h.Source, &s); err != nil {
		return domain.Session{}, fmt.Errorf("decode session %s: %w", h.ID, err)
	}
	s.ID = h.ID
	return s, nil
}

package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Target names the document collection a request runs against.
type Target string

const (
	TargetProducts Target = "products"
	TargetSessions Target = "sessions"
)

// AggKind is the kind of an aggregation.
type AggKind string

const (
	AggTerms AggKind = "terms"
	AggMin   AggKind = "min"
	AggMax   AggKind = "max"
)

// Aggregation asks the backend to summarize the match set. Terms
// aggregations return buckets ordered by descending count, at most Size of
// them; min and max return a single value.
type Aggregation struct {
	Name  string  `json:"name"`
	Kind  AggKind `json:"kind"`
	Field string  `json:"field"`
	Size  int     `json:"size,omitempty"`
}

// SortKey is a computed or stored ordering key.
type SortKey string

// ByDiscount orders by (1 - outlet/retail) * 100.
const ByDiscount SortKey = "discount"

// Sort orders hits. Without sorts the backend's relevance order applies.
type Sort struct {
	By   SortKey `json:"by"`
	Desc bool    `json:"desc"`
}

// Request is a complete, backend-agnostic search request.
type Request struct {
	// Operation names the request for tracing, metrics and logs.
	Operation    string        `json:"operation"`
	Target       Target        `json:"target"`
	Clauses      []Clause      `json:"-"`
	From         int           `json:"from"`
	Size         int           `json:"size"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	Sort         []Sort        `json:"sort,omitempty"`
}

// Hit is one matching document.
type Hit struct {
	ID     string          `json:"id"`
	Source json.RawMessage `json:"source"`
}

// Bucket is one group of a terms aggregation.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// AggResult holds either buckets (terms) or a single value (min, max).
// Value is nil when a metric aggregation ran over no documents.
type AggResult struct {
	Buckets []Bucket `json:"buckets,omitempty"`
	Value   *float64 `json:"value,omitempty"`
}

// Response is the backend's answer to a Request.
type Response struct {
	Total        int                  `json:"total"`
	Hits         []Hit                `json:"hits"`
	Aggregations map[string]AggResult `json:"aggregations,omitempty"`
}

type taggedClause struct {
	Type   string `json:"type"`
	Clause Clause `json:"clause"`
}

// Fingerprint returns a stable digest of everything that affects the
// request's result. Equal requests have equal fingerprints.
func (r *Request) Fingerprint() (string, error) {
	tagged := make([]taggedClause, len(r.Clauses))
	for i, c := range r.Clauses {
		tagged[i] = taggedClause{Type: fmt.Sprintf("%T", c), Clause: c}
	}
	b, err := json.Marshal(struct {
		*Request
		Clauses []taggedClause `json:"clauses"`
	}{Request: r, Clauses: tagged})
	if err != nil {
		return "", fmt.Errorf("fingerprint request: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

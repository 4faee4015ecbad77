package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/query"
)

const keywordSuffix = ".keyword"

// Engine is an in-memory implementation of engine.Backend.
// Text fields are matched on lower-cased word tokens, ".keyword" subfields
// on the whole stored value. Documents without a relevance score keep
// insertion order. Thread-safe via sync.RWMutex.
type Engine struct {
	mu    sync.RWMutex
	order map[query.Target][]string
	docs  map[query.Target]map[string]document
}

type document struct {
	id     string
	source json.RawMessage
	fields map[string]any
}

// New creates a new, empty in-memory engine.
func New() *Engine {
	return &Engine{
		order: make(map[query.Target][]string),
		docs: map[query.Target]map[string]document{
			query.TargetProducts: {},
			query.TargetSessions: {},
		},
	}
}

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error {
	return nil
}

// IndexProducts adds or replaces products. A product without an id is
// assigned a random one.
func (e *Engine) IndexProducts(_ context.Context, products []domain.Product) error {
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.NewString()
		}
		if err := e.put(query.TargetProducts, products[i].ID, products[i]); err != nil {
			return err
		}
	}
	return nil
}

// IndexSessions adds or replaces sessions. A session without an id is
// assigned a random one.
func (e *Engine) IndexSessions(_ context.Context, sessions []domain.Session) error {
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = uuid.NewString()
		}
		if err := e.put(query.TargetSessions, sessions[i].ID, sessions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) put(target query.Target, id string, v any) error {
	src, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("memory index %s: marshal %s: %w", target, id, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(src, &fields); err != nil {
		return fmt.Errorf("memory index %s: decode %s: %w", target, id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.docs[target][id]; !exists {
		e.order[target] = append(e.order[target], id)
	}
	e.docs[target][id] = document{id: id, source: src, fields: fields}
	return nil
}

type scored struct {
	doc   document
	score float64
}

// Search evaluates the request against the indexed documents.
func (e *Engine) Search(_ context.Context, req *query.Request) (*query.Response, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	docs, ok := e.docs[req.Target]
	if !ok {
		return nil, fmt.Errorf("memory search: unknown target %q", req.Target)
	}

	relevance := false
	matched := make([]scored, 0)
	for _, id := range e.order[req.Target] {
		d := docs[id]
		score, ok := evaluate(d, req.Clauses)
		if !ok {
			continue
		}
		if score > 0 {
			relevance = true
		}
		matched = append(matched, scored{doc: d, score: score})
	}

	sortHits(matched, req.Sort, relevance)

	resp := &query.Response{
		Total: len(matched),
		Hits:  window(matched, req.From, req.Size),
	}
	if len(req.Aggregations) > 0 {
		resp.Aggregations = make(map[string]query.AggResult, len(req.Aggregations))
		for _, agg := range req.Aggregations {
			resp.Aggregations[agg.Name] = aggregate(matched, agg)
		}
	}
	return resp, nil
}

// evaluate reports whether d satisfies every clause and its relevance score.
func evaluate(d document, clauses []query.Clause) (float64, bool) {
	var score float64
	for _, c := range clauses {
		switch c := c.(type) {
		case query.MultiMatch:
			s := multiMatchScore(d, c)
			if s == 0 {
				return 0, false
			}
			score += s
		case query.Term:
			if !termMatches(d, c.Field, c.Value) {
				return 0, false
			}
		case query.Terms:
			found := false
			for _, v := range c.Values {
				if termMatches(d, c.Field, v) {
					found = true
					break
				}
			}
			if !found {
				return 0, false
			}
		case query.Phrase:
			if !phraseMatches(textValues(d, c.Field), tokenize(c.Text)) {
				return 0, false
			}
		case query.Range:
			if !rangeMatches(d, c) {
				return 0, false
			}
		case query.IDs:
			found := false
			for _, v := range c.Values {
				if v == d.id {
					found = true
					break
				}
			}
			if !found {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	return score, true
}

// multiMatchScore sums, over every field, how many query tokens the field
// contains.
func multiMatchScore(d document, m query.MultiMatch) float64 {
	want := tokenize(m.Text)
	var score float64
	for _, f := range m.Fields {
		have := make(map[string]struct{})
		for _, v := range textValues(d, f) {
			for _, tok := range tokenize(v) {
				have[tok] = struct{}{}
			}
		}
		for _, tok := range want {
			if _, ok := have[tok]; ok {
				score++
			}
		}
	}
	return score
}

func termMatches(d document, field, value string) bool {
	if base, ok := strings.CutSuffix(field, keywordSuffix); ok {
		for _, v := range textValues(d, base) {
			if v == value {
				return true
			}
		}
		return false
	}
	for _, v := range textValues(d, field) {
		for _, tok := range tokenize(v) {
			if tok == value {
				return true
			}
		}
	}
	return false
}

// phraseMatches reports whether any value tokenizes to exactly phrase.
// A label that merely contains the phrase does not match.
func phraseMatches(values []string, phrase []string) bool {
	if len(phrase) == 0 {
		return true
	}
	for _, v := range values {
		if equalTokens(tokenize(v), phrase) {
			return true
		}
	}
	return false
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func rangeMatches(d document, r query.Range) bool {
	v, ok := numberValue(d, r.Field)
	if !ok {
		return false
	}
	if r.GTE != nil && v < *r.GTE {
		return false
	}
	if r.LTE != nil && v > *r.LTE {
		return false
	}
	if r.GT != nil && v <= *r.GT {
		return false
	}
	return true
}

func sortHits(matched []scored, sorts []query.Sort, relevance bool) {
	for _, s := range sorts {
		if s.By == query.ByDiscount {
			sort.SliceStable(matched, func(i, j int) bool {
				a, b := discount(matched[i].doc), discount(matched[j].doc)
				if s.Desc {
					return a > b
				}
				return a < b
			})
			return
		}
	}
	if relevance {
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].score > matched[j].score
		})
	}
}

func discount(d document) float64 {
	outlet, ok1 := numberValue(d, query.FieldPriceOutlet)
	retail, ok2 := numberValue(d, query.FieldPriceRetail)
	if !ok1 || !ok2 || retail == 0 {
		return math.Inf(-1)
	}
	return (1.0 - outlet/retail) * 100.0
}

func window(matched []scored, from, size int) []query.Hit {
	total := len(matched)
	if from > total {
		from = total
	}
	end := from + size
	if end > total {
		end = total
	}

	hits := make([]query.Hit, 0, end-from)
	for _, m := range matched[from:end] {
		hits = append(hits, query.Hit{ID: m.doc.id, Source: m.doc.source})
	}
	return hits
}

func aggregate(matched []scored, agg query.Aggregation) query.AggResult {
	switch agg.Kind {
	case query.AggTerms:
		field, _ := strings.CutSuffix(agg.Field, keywordSuffix)
		counts := make(map[string]int)
		for _, m := range matched {
			for _, v := range textValues(m.doc, field) {
				counts[v]++
			}
		}
		buckets := make([]query.Bucket, 0, len(counts))
		for k, n := range counts {
			buckets = append(buckets, query.Bucket{Key: k, Count: n})
		}
		sort.Slice(buckets, func(i, j int) bool {
			if buckets[i].Count != buckets[j].Count {
				return buckets[i].Count > buckets[j].Count
			}
			return buckets[i].Key < buckets[j].Key
		})
		if agg.Size > 0 && len(buckets) > agg.Size {
			buckets = buckets[:agg.Size]
		}
		return query.AggResult{Buckets: buckets}
	case query.AggMin, query.AggMax:
		var result *float64
		for _, m := range matched {
			v, ok := numberValue(m.doc, agg.Field)
			if !ok {
				continue
			}
			if result == nil || (agg.Kind == query.AggMin && v < *result) || (agg.Kind == query.AggMax && v > *result) {
				result = &v
			}
		}
		return query.AggResult{Value: result}
	default:
		return query.AggResult{}
	}
}

// lookup walks a dotted path through nested objects.
func lookup(d document, path string) (any, bool) {
	var cur any = d.fields
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func textValues(d document, field string) []string {
	v, ok := lookup(d, field)
	if !ok {
		return nil
	}
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func numberValue(d document, field string) (float64, bool) {
	v, ok := lookup(d, field)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// tokenize lower-cases s and splits it into letter and digit runs, the way
// the standard analyzer does for the catalog's labels.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

package elasticsearch

import (
	"github.com/willrp/willstores-ws/internal/query"
)

// discountScript ranks products by percentage off retail.
const discountScript = "(1.0 - (doc['price.outlet'].value / doc['price.retail'].value)) * 100"

// buildSearchBody translates a backend-agnostic request into the
// Elasticsearch query DSL.
func buildSearchBody(req *query.Request) map[string]interface{} {
	body := map[string]interface{}{
		"query":            buildQuery(req.Clauses),
		"from":             req.From,
		"size":             req.Size,
		"track_total_hits": true,
	}
	if aggs := buildAggs(req.Aggregations); len(aggs) > 0 {
		body["aggs"] = aggs
	}
	if sort := buildSort(req.Sort); len(sort) > 0 {
		body["sort"] = sort
	}
	return body
}

// buildQuery puts scoring clauses under must and exact constraints under
// filter. No clauses match everything.
func buildQuery(clauses []query.Clause) map[string]interface{} {
	var must, filter []interface{}

	for _, c := range clauses {
		switch c := c.(type) {
		case query.MultiMatch:
			must = append(must, map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  c.Text,
					"fields": c.Fields,
					"type":   "most_fields",
				},
			})
		case query.Phrase:
			filter = append(filter, map[string]interface{}{
				"term": map[string]interface{}{
					c.Field + exactSuffix: c.Text,
				},
			})
		case query.Term:
			filter = append(filter, map[string]interface{}{
				"term": map[string]interface{}{
					c.Field: c.Value,
				},
			})
		case query.Terms:
			filter = append(filter, map[string]interface{}{
				"terms": map[string]interface{}{
					c.Field: c.Values,
				},
			})
		case query.Range:
			filter = append(filter, map[string]interface{}{
				"range": map[string]interface{}{
					c.Field: rangeBounds(c),
				},
			})
		case query.IDs:
			filter = append(filter, map[string]interface{}{
				"ids": map[string]interface{}{
					"values": c.Values,
				},
			})
		}
	}

	if len(must) == 0 && len(filter) == 0 {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]interface{}{
		"bool": boolQuery,
	}
}

func rangeBounds(r query.Range) map[string]interface{} {
	bounds := map[string]interface{}{}
	if r.GTE != nil {
		bounds["gte"] = *r.GTE
	}
	if r.LTE != nil {
		bounds["lte"] = *r.LTE
	}
	if r.GT != nil {
		bounds["gt"] = *r.GT
	}
	return bounds
}

func buildAggs(aggs []query.Aggregation) map[string]interface{} {
	out := make(map[string]interface{}, len(aggs))
	for _, a := range aggs {
		switch a.Kind {
		case query.AggTerms:
			out[a.Name] = map[string]interface{}{
				"terms": map[string]interface{}{
					"field": a.Field,
					"size":  a.Size,
				},
			}
		case query.AggMin, query.AggMax:
			out[a.Name] = map[string]interface{}{
				string(a.Kind): map[string]interface{}{
					"field": a.Field,
				},
			}
		}
	}
	return out
}

// buildSort returns nil for relevance order.
func buildSort(sorts []query.Sort) []interface{} {
	var out []interface{}
	for _, s := range sorts {
		order := "asc"
		if s.Desc {
			order = "desc"
		}
		if s.By != query.ByDiscount {
			continue
		}
		out = append(out, map[string]interface{}{
			"_script": map[string]interface{}{
				"type": "number",
				"script": map[string]interface{}{
					"lang":   "painless",
					"source": discountScript,
				},
				"order": order,
			},
		})
	}
	return out
}

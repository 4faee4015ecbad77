package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/willrp/willstores-ws/internal/domain"
	"github.com/willrp/willstores-ws/internal/query"
	"github.com/willrp/willstores-ws/pkg/database"
	apperrors "github.com/willrp/willstores-ws/pkg/errors"
)

const system = "elasticsearch"

// Indices names the products and sessions indices.
type Indices struct {
	Products string
	Sessions string
}

// Engine is an Elasticsearch-backed implementation of engine.Backend.
type Engine struct {
	client  *elasticsearch.Client
	indices Indices
	logger  *slog.Logger
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]esAggregation `json:"aggregations"`
}

// esAggregation covers terms buckets and single-value metrics.
type esAggregation struct {
	Buckets []struct {
		Key      interface{} `json:"key"`
		DocCount int         `json:"doc_count"`
	} `json:"buckets"`
	Value *float64 `json:"value"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine for the cluster at esURL. No request is sent until
// the first call. Empty index names fall back to the defaults. The client
// does not retry: a failed call surfaces immediately.
func New(esURL string, indices Indices, logger *slog.Logger) (*Engine, error) {
	if indices.Products == "" {
		indices.Products = DefaultProductsIndex
	}
	if indices.Sessions == "" {
		indices.Sessions = DefaultSessionsIndex
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{esURL},
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	return &Engine{
		client:  client,
		indices: indices,
		logger:  logger,
	}, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (e *Engine) index(target query.Target) (string, error) {
	switch target {
	case query.TargetProducts:
		return e.indices.Products, nil
	case query.TargetSessions:
		return e.indices.Sessions, nil
	default:
		return "", fmt.Errorf("elasticsearch: unknown target %q", target)
	}
}

// Search executes req against the target index. Transport failures and
// error responses are reported as apperrors.BackendUnavailable.
func (e *Engine) Search(ctx context.Context, req *query.Request) (resp *query.Response, err error) {
	index, err := e.index(req.Target)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(buildSearchBody(req))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, database.Query{
		System:    system,
		Operation: req.Operation,
		Target:    index,
		Statement: string(data),
	})
	defer func() { end(err) }()

	res, err := e.client.Search(
		e.client.Search.WithIndex(index),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, apperrors.BackendUnavailable(fmt.Errorf("elasticsearch search %s: %w", req.Operation, err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, apperrors.BackendUnavailable(responseError("elasticsearch search "+req.Operation, res))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, apperrors.BackendUnavailable(fmt.Errorf("elasticsearch search %s: decode response: %w", req.Operation, err))
	}

	return toResponse(&esResp), nil
}

func toResponse(esResp *esSearchResponse) *query.Response {
	resp := &query.Response{
		Total: esResp.Hits.Total.Value,
		Hits:  make([]query.Hit, 0, len(esResp.Hits.Hits)),
	}
	for _, h := range esResp.Hits.Hits {
		resp.Hits = append(resp.Hits, query.Hit{ID: h.ID, Source: h.Source})
	}

	if len(esResp.Aggregations) > 0 {
		resp.Aggregations = make(map[string]query.AggResult, len(esResp.Aggregations))
		for name, agg := range esResp.Aggregations {
			result := query.AggResult{Value: agg.Value}
			for _, b := range agg.Buckets {
				result.Buckets = append(result.Buckets, query.Bucket{Key: fmt.Sprint(b.Key), Count: b.DocCount})
			}
			resp.Aggregations[name] = result
		}
	}
	return resp
}

// responseError describes an error response, preferring the cluster's own
// error type and reason.
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}

// EnsureIndices creates the products and sessions indices with their
// mappings when they do not exist yet. Existing indices are left untouched.
func (e *Engine) EnsureIndices(ctx context.Context) error {
	if err := e.ensureIndex(ctx, e.indices.Products, productsMapping); err != nil {
		return err
	}
	return e.ensureIndex(ctx, e.indices.Sessions, sessionsMapping)
}

func (e *Engine) ensureIndex(ctx context.Context, name, mapping string) error {
	res, err := e.client.Indices.Exists([]string{name}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s exists: %w", name, err)
	}
	_ = res.Body.Close()

	// Status 200 means the index exists.
	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", name)
		return nil
	}

	res, err = e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index "+name, res)
	}

	e.logger.Info("elasticsearch index created", "index", name)
	return nil
}

// DeleteIndices removes both indices.
// It is intended for testing and administrative operations only.
// A 404 response is treated as success (index already absent).
func (e *Engine) DeleteIndices(ctx context.Context) error {
	for _, name := range []string{e.indices.Products, e.indices.Sessions} {
		res, err := e.client.Indices.Delete(
			[]string{name},
			e.client.Indices.Delete.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("elasticsearch delete index %s: %w", name, err)
		}

		if res.IsError() && res.StatusCode != 404 {
			err := responseError("elasticsearch delete index "+name, res)
			_ = res.Body.Close()
			return err
		}
		_ = res.Body.Close()

		e.logger.Info("elasticsearch index deleted", "index", name)
	}
	return nil
}

type bulkDoc struct {
	id     string
	source interface{}
}

// IndexProducts adds or replaces products in the products index using the
// bulk NDJSON API. Products without an id get one assigned by the cluster.
func (e *Engine) IndexProducts(ctx context.Context, products []domain.Product) error {
	docs := make([]bulkDoc, len(products))
	for i := range products {
		docs[i] = bulkDoc{id: products[i].ID, source: products[i]}
	}
	return e.bulkIndex(ctx, e.indices.Products, docs)
}

// IndexSessions adds or replaces sessions in the sessions index.
func (e *Engine) IndexSessions(ctx context.Context, sessions []domain.Session) error {
	docs := make([]bulkDoc, len(sessions))
	for i := range sessions {
		docs[i] = bulkDoc{id: sessions[i].ID, source: sessions[i]}
	}
	return e.bulkIndex(ctx, e.indices.Sessions, docs)
}

func (e *Engine) bulkIndex(ctx context.Context, index string, docs []bulkDoc) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, d := range docs {
		meta := map[string]interface{}{"_index": index}
		if d.id != "" {
			meta["_id"] = d.id
		}
		if err := enc.Encode(map[string]interface{}{"index": meta}); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(d.source); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(index),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk index", res)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: read response: %w", err)
	}
	var bulkResp esBulkResponse
	if err := json.Unmarshal(body, &bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(errMsgs, "; "))
	}

	e.logger.Info("bulk indexed documents", "index", index, "count", len(docs))
	return nil
}

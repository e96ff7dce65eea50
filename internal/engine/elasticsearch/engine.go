package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/hybridsearch/internal/domain"
)

// Config holds the connection settings for the relevance backend.
type Config struct {
	URL       string
	Index     string
	Username  string
	Password  string
	Transport http.RoundTripper
}

// Engine is the Elasticsearch-backed relevance strategy. It also maintains
// the products index.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source domain.ProductRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
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

// New creates a client and makes sure the products index exists. Client
// side retries are disabled; cfg.Transport is expected to carry any circuit
// breaking.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Engine, error) {
	indexName := cfg.Index
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{cfg.URL},
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}

	if err := e.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}

	return e, nil
}

// IndexName returns the index this engine reads and writes.
func (e *Engine) IndexName() string { return e.indexName }

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

// EnsureIndex creates the products index with its mapping if it is missing.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		e.logger.Info("elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index exists: unexpected status %s", res.Status())
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// Index adds or replaces a single product document.
func (e *Engine) Index(ctx context.Context, product *domain.ProductRecord) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal product: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(documentID(product.ProductID)),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("index", res)
	}

	e.logger.Debug("indexed product", slog.Int64("product_id", product.ProductID), slog.String("name", product.Name))
	return nil
}

// Delete removes a product document. A missing document is not an error.
func (e *Engine) Delete(ctx context.Context, productID int64) error {
	res, err := e.client.Delete(
		e.indexName,
		documentID(productID),
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}

	e.logger.Debug("deleted product", slog.Int64("product_id", productID))
	return nil
}

// Search runs the ranked relevance query.
func (e *Engine) Search(ctx context.Context, q domain.StrategyQuery) (domain.StrategyResult, error) {
	data, err := json.Marshal(buildSearchQuery(q))
	if err != nil {
		return domain.StrategyResult{}, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return domain.StrategyResult{}, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return domain.StrategyResult{}, responseError("search", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return domain.StrategyResult{}, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	records := make([]domain.ProductRecord, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		records = append(records, hit.Source)
	}

	return domain.StrategyResult{
		Records: records,
		Total:   esResp.Hits.Total.Value,
	}, nil
}

// DeleteIndex removes the entire index. A 404 response is treated as
// success.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", res)
	}

	e.logger.Info("elasticsearch index deleted", slog.String("index", e.indexName))
	return nil
}

// RecreateIndex drops the index and creates it again with the current
// mapping.
func (e *Engine) RecreateIndex(ctx context.Context) error {
	if err := e.DeleteIndex(ctx); err != nil {
		return err
	}
	return e.EnsureIndex(ctx)
}

// BulkIndex adds or replaces multiple product documents through the bulk
// NDJSON API.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.ProductRecord) error {
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for i := range products {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": e.indexName,
				"_id":    documentID(products[i].ProductID),
			},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(products[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("bulk index", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
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

	e.logger.Info("bulk indexed products", slog.Int("count", len(products)))
	return nil
}

func documentID(productID int64) string {
	return strconv.FormatInt(productID, 10)
}

// responseError decodes an Elasticsearch error body into "type: reason".
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: unexpected status %s", op, res.Status())
}

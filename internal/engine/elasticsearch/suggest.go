package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// esSuggestResponse is the structure used to decode Elasticsearch suggest responses.
type esSuggestResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Name string `json:"name"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// suggestOverfetch widens the hit window so that duplicate names do not
// leave the result short.
const suggestOverfetch = 3

// Suggest returns up to limit distinct product names matching prefix on the
// name.autocomplete sub-field, best match first.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || limit <= 0 {
		return []string{}, nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"name.autocomplete": map[string]interface{}{
					"query":    prefix,
					"operator": "and",
				},
			},
		},
		"size":    limit * suggestOverfetch,
		"_source": []string{"name"},
		"sort": []interface{}{
			map[string]interface{}{"_score": "desc"},
			map[string]interface{}{"product_id": "asc"},
		},
	}

	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("suggest", res)
	}

	var esResp esSuggestResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: decode response: %w", err)
	}

	seen := make(map[string]struct{})
	names := make([]string, 0, limit)
	for _, hit := range esResp.Hits.Hits {
		name := hit.Source.Name
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
		if len(names) == limit {
			break
		}
	}

	return names, nil
}

package elasticsearch

// DefaultIndexName is the index used for product documents when none is configured.
const DefaultIndexName = "products"

// buildIndexMapping returns the settings and mapping for the products index.
// name and category_name carry an edge-ngram "autocomplete" sub-field used by
// Suggest and a "raw" keyword sub-field for exact aggregation.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "product_search_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        },
        "product_autocomplete": {
          "type": "custom",
          "tokenizer": "product_edge_ngram_tokenizer",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "product_edge_ngram_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "product_id":           { "type": "integer" },
      "name":                 { "type": "text", "analyzer": "product_search_analyzer", "fields": { "raw": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "product_autocomplete", "search_analyzer": "product_search_analyzer" } } },
      "category_name":        { "type": "text", "analyzer": "product_search_analyzer", "fields": { "raw": { "type": "keyword" }, "autocomplete": { "type": "text", "analyzer": "product_autocomplete", "search_analyzer": "product_search_analyzer" } } },
      "category_description": { "type": "text", "analyzer": "product_search_analyzer" },
      "MRP_in_INR":           { "type": "float" },
      "discount_price":       { "type": "float" },
      "qty":                  { "type": "integer" },
      "image":                { "type": "keyword", "index": false }
    }
  }
}`
}

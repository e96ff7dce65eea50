package elasticsearch

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/hybridsearch/internal/domain"
)

func i64(v int64) *int64 { return &v }

func marshalQuery(t *testing.T, q domain.StrategyQuery) string {
	t.Helper()
	b, err := json.Marshal(buildSearchQuery(q))
	require.NoError(t, err)
	return string(b)
}

func TestBuildSearchQuery_RankedClauses(t *testing.T) {
	got := marshalQuery(t, domain.StrategyQuery{Term: "Red Shoes", Page: 1, Limit: 10, Sort: domain.SortRelevance})

	assert.JSONEq(t, `{
	  "query": {"bool": {
	    "should": [
	      {"multi_match": {"query": "Red Shoes", "fields": ["name^4", "category_name^2", "category_description"], "fuzziness": "AUTO", "operator": "or"}},
	      {"multi_match": {"query": "Red Shoes", "fields": ["name^3", "category_name^2", "category_description"], "type": "bool_prefix"}},
	      {"match_phrase_prefix": {"name": {"query": "Red Shoes", "slop": 3, "boost": 2}}},
	      {"wildcard": {"name": {"value": "*red shoes*", "boost": 0.2}}}
	    ],
	    "minimum_should_match": 1
	  }},
	  "sort": [{"_score": "desc"}, {"product_id": "asc"}],
	  "from": 0,
	  "size": 10,
	  "track_total_hits": true
	}`, got)
}

func TestBuildSearchQuery_PriceFilterIsHard(t *testing.T) {
	tests := []struct {
		name  string
		price *domain.PriceConstraint
		want  string
	}{
		{"max", &domain.PriceConstraint{Max: i64(500)}, `[{"range":{"discount_price":{"lte":500}}}]`},
		{"min", &domain.PriceConstraint{Min: i64(200)}, `[{"range":{"discount_price":{"gte":200}}}]`},
		{"between", &domain.PriceConstraint{Min: i64(200), Max: i64(800)}, `[{"range":{"discount_price":{"gte":200,"lte":800}}}]`},
		{"inverted kept", &domain.PriceConstraint{Min: i64(100), Max: i64(50)}, `[{"range":{"discount_price":{"gte":100,"lte":50}}}]`},
		{"zero", &domain.PriceConstraint{Max: i64(0)}, `[{"range":{"discount_price":{"lte":0}}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := buildSearchQuery(domain.StrategyQuery{Term: "shoes", Price: tt.price, Page: 1, Limit: 10})
			boolQ := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
			b, err := json.Marshal(boolQ["filter"])
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
			assert.Len(t, boolQ["should"], 4)
		})
	}
}

func TestBuildSearchQuery_EmptyTermIsFilterOnly(t *testing.T) {
	got := marshalQuery(t, domain.StrategyQuery{
		Term: "  ", Price: &domain.PriceConstraint{Min: i64(100), Max: i64(50)}, Page: 3, Limit: 5, Sort: domain.SortPriceAsc,
	})

	assert.JSONEq(t, `{
	  "query": {"bool": {
	    "must": [{"match_all": {}}],
	    "filter": [{"range": {"discount_price": {"gte": 100, "lte": 50}}}]
	  }},
	  "sort": [{"discount_price": {"order": "asc"}}, {"product_id": "asc"}],
	  "from": 10,
	  "size": 5,
	  "track_total_hits": true
	}`, got)
}

func TestBuildSearchQuery_ResultWindow(t *testing.T) {
	tests := []struct {
		name           string
		page, limit    int
		wantFrom, want int
	}{
		{"last full page", 1000, 10, 9990, 10},
		{"crosses window", 1000, 11, 0, 0},
		{"beyond window", 1001, 10, 0, 0},
		{"saturated offset", math.MaxInt, 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := buildSearchQuery(domain.StrategyQuery{Term: "shoes", Page: tt.page, Limit: tt.limit})
			assert.Equal(t, tt.wantFrom, q["from"])
			assert.Equal(t, tt.want, q["size"])
			assert.Equal(t, true, q["track_total_hits"])
		})
	}
}

func TestBuildSearchQuery_NoConstraintNoFilter(t *testing.T) {
	q := buildSearchQuery(domain.StrategyQuery{Term: "shoes", Page: 1, Limit: 10})
	boolQ := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.NotContains(t, boolQ, "filter")
}

func TestBuildSort(t *testing.T) {
	b, _ := json.Marshal(buildSort(domain.SortPriceDesc))
	assert.JSONEq(t, `[{"discount_price":{"order":"desc"}},{"product_id":"asc"}]`, string(b))

	b, _ = json.Marshal(buildSort("anything"))
	assert.JSONEq(t, `[{"_score":"desc"},{"product_id":"asc"}]`, string(b))
}

func TestWildcardEscaping(t *testing.T) {
	clauses := buildShouldClauses(`50*off?`)
	b, err := json.Marshal(clauses[3])
	require.NoError(t, err)
	assert.JSONEq(t, `{"wildcard":{"name":{"value":"*50\\*off\\?*","boost":0.2}}}`, string(b))
}

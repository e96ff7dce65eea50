package elasticsearch

import (
	"strings"

	"github.com/utafrali/hybridsearch/internal/domain"
)

// maxResultWindow is the index.max_result_window default. Elasticsearch
// rejects from+size past it.
const maxResultWindow = 10000

// wildcardEscaper escapes the characters the wildcard query treats specially.
var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// buildSearchQuery constructs the search request body. A non-empty term is
// matched by four OR-ed clauses of decreasing weight; the price constraint
// is always a hard filter. An empty term selects every document and leaves
// only the filter.
func buildSearchQuery(q domain.StrategyQuery) map[string]interface{} {
	boolQuery := map[string]interface{}{}

	term := strings.TrimSpace(q.Term)
	if term == "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{"match_all": map[string]interface{}{}},
		}
	} else {
		boolQuery["should"] = buildShouldClauses(term)
		boolQuery["minimum_should_match"] = 1
	}

	if r := buildPriceRange(q.Price); r != nil {
		boolQuery["filter"] = []interface{}{r}
	}

	from, size := q.Offset(), q.Limit
	// Past the window only the total is fetched, so the page comes back empty.
	if size > maxResultWindow || from > maxResultWindow-size {
		from, size = 0, 0
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"sort":             buildSort(q.Sort),
		"from":             from,
		"size":             size,
		"track_total_hits": true,
	}
}

func buildShouldClauses(term string) []interface{} {
	return []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     term,
				"fields":    []string{"name^4", "category_name^2", "category_description"},
				"fuzziness": "AUTO",
				"operator":  "or",
			},
		},
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"name^3", "category_name^2", "category_description"},
				"type":   "bool_prefix",
			},
		},
		map[string]interface{}{
			"match_phrase_prefix": map[string]interface{}{
				"name": map[string]interface{}{
					"query": term,
					"slop":  3,
					"boost": 2,
				},
			},
		},
		map[string]interface{}{
			"wildcard": map[string]interface{}{
				"name": map[string]interface{}{
					"value": "*" + wildcardEscaper.Replace(strings.ToLower(term)) + "*",
					"boost": 0.2,
				},
			},
		},
	}
}

// buildPriceRange returns a range filter on discount_price, or nil.
func buildPriceRange(c *domain.PriceConstraint) map[string]interface{} {
	if c == nil || (c.Min == nil && c.Max == nil) {
		return nil
	}
	bounds := map[string]interface{}{}
	if c.Min != nil {
		bounds["gte"] = *c.Min
	}
	if c.Max != nil {
		bounds["lte"] = *c.Max
	}
	return map[string]interface{}{
		"range": map[string]interface{}{
			"discount_price": bounds,
		},
	}
}

// buildSort orders by price when requested, otherwise by score. product_id
// breaks ties so pages never overlap.
func buildSort(sortBy string) []interface{} {
	tiebreak := map[string]interface{}{"product_id": "asc"}
	switch sortBy {
	case domain.SortPriceAsc:
		return []interface{}{
			map[string]interface{}{"discount_price": map[string]interface{}{"order": "asc"}},
			tiebreak,
		}
	case domain.SortPriceDesc:
		return []interface{}{
			map[string]interface{}{"discount_price": map[string]interface{}{"order": "desc"}},
			tiebreak,
		}
	default:
		return []interface{}{
			map[string]interface{}{"_score": "desc"},
			tiebreak,
		}
	}
}

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/utafrali/hybridsearch/internal/domain"
)

// Engine keeps products in process memory and answers searches with the
// lexical semantics: case-insensitive substring on name plus the price
// constraint. It serves as the backend for either mode in development and
// tests. Safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	products map[int64]domain.ProductRecord
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		products: make(map[int64]domain.ProductRecord),
	}
}

// Index adds or replaces a product.
func (e *Engine) Index(_ context.Context, product *domain.ProductRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.products[product.ProductID] = *product
	return nil
}

// Delete removes a product by ID.
func (e *Engine) Delete(_ context.Context, productID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.products, productID)
	return nil
}

// BulkIndex adds or replaces multiple products.
func (e *Engine) BulkIndex(_ context.Context, products []domain.ProductRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range products {
		e.products[products[i].ProductID] = products[i]
	}
	return nil
}

// Search filters, orders and pages the stored products.
func (e *Engine) Search(_ context.Context, q domain.StrategyQuery) (domain.StrategyResult, error) {
	termLower := strings.ToLower(q.Term)

	e.mu.RLock()
	matched := make([]domain.ProductRecord, 0)
	for _, p := range e.products {
		if !strings.Contains(strings.ToLower(p.Name), termLower) {
			continue
		}
		if !q.Price.Matches(p.DiscountPrice) {
			continue
		}
		matched = append(matched, p)
	}
	e.mu.RUnlock()

	sortRecords(matched, q.Sort)

	total := len(matched)
	offset := q.Offset()
	if offset < 0 || offset > total {
		offset = total
	}
	end := total
	if q.Limit > 0 && q.Limit < total-offset {
		end = offset + q.Limit
	}

	return domain.StrategyResult{
		Records: matched[offset:end],
		Total:   int64(total),
	}, nil
}

// Suggest returns distinct names starting with prefix, case-insensitively,
// in alphabetical order.
func (e *Engine) Suggest(_ context.Context, prefix string, limit int) ([]string, error) {
	prefixLower := strings.ToLower(strings.TrimSpace(prefix))
	if prefixLower == "" || limit < 1 {
		return []string{}, nil
	}

	e.mu.RLock()
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, p := range e.products {
		if !strings.HasPrefix(strings.ToLower(p.Name), prefixLower) {
			continue
		}
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		names = append(names, p.Name)
	}
	e.mu.RUnlock()

	sort.Strings(names)
	if len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

// ListForIndex pages through products in product_id order.
func (e *Engine) ListForIndex(_ context.Context, afterID int64, limit int) ([]domain.ProductRecord, error) {
	e.mu.RLock()
	out := make([]domain.ProductRecord, 0)
	for id, p := range e.products {
		if id > afterID {
			out = append(out, p)
		}
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored products.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.products)
}

// sortRecords applies the price order with product_id as tiebreaker, or
// primary-key order for relevance.
func sortRecords(records []domain.ProductRecord, sortBy string) {
	switch sortBy {
	case domain.SortPriceAsc:
		sort.Slice(records, func(i, j int) bool {
			if records[i].DiscountPrice != records[j].DiscountPrice {
				return records[i].DiscountPrice < records[j].DiscountPrice
			}
			return records[i].ProductID < records[j].ProductID
		})
	case domain.SortPriceDesc:
		sort.Slice(records, func(i, j int) bool {
			if records[i].DiscountPrice != records[j].DiscountPrice {
				return records[i].DiscountPrice > records[j].DiscountPrice
			}
			return records[i].ProductID < records[j].ProductID
		})
	default:
		sort.Slice(records, func(i, j int) bool {
			return records[i].ProductID < records[j].ProductID
		})
	}
}

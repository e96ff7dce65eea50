package engine

import (
	"context"

	"github.com/utafrali/hybridsearch/internal/domain"
)

// Strategy executes one interpreted search against a backend and returns a
// page of raw records with the pre-pagination total. The orchestrator treats
// every implementation as interchangeable.
type Strategy interface {
	Search(ctx context.Context, q domain.StrategyQuery) (domain.StrategyResult, error)
}

// Indexer maintains the documents a relevance backend searches over.
type Indexer interface {
	// Index adds or replaces a single product document.
	Index(ctx context.Context, product *domain.ProductRecord) error

	// Delete removes a product document. Deleting a missing document is not an error.
	Delete(ctx context.Context, productID int64) error

	// BulkIndex adds or replaces many product documents in one request.
	BulkIndex(ctx context.Context, products []domain.ProductRecord) error
}

// Suggester returns up to limit distinct product names starting with prefix.
type Suggester interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)
}

// ProductSource pages through the system of record in product_id order,
// returning products with product_id greater than afterID.
type ProductSource interface {
	ListForIndex(ctx context.Context, afterID int64, limit int) ([]domain.ProductRecord, error)
}

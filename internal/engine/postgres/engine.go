package postgres

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/hybridsearch/internal/domain"
	"github.com/utafrali/hybridsearch/pkg/database"
)

// Engine is the lexical strategy: case-insensitive substring match on the
// product name plus the price constraint, evaluated by PostgreSQL. It is
// also the product source for reindexing.
type Engine struct {
	db database.DBTX
}

// New creates a lexical engine over db. Search issues two queries at once,
// so db must be safe for concurrent use: a *pgxpool.Pool, not a pgx.Tx or
// *pgx.Conn.
func New(db database.DBTX) *Engine {
	return &Engine{db: db}
}

const productColumns = `
		p.product_id,
		p.name,
		p.mrp_in_inr::float8,
		p.discount_price::float8,
		p.qty,
		COALESCE(p.image, ''),
		COALESCE(c.category_name, ''),
		COALESCE(c.category_desc, '')`

const productFrom = `
		FROM products p
		LEFT JOIN categories c ON c.category_id = p.category_id`

// likeEscaper makes every character of the term match literally in ILIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhere returns the shared WHERE clause and its arguments.
func buildWhere(q domain.StrategyQuery) (string, []any) {
	conditions := []string{"p.name ILIKE $1"}
	args := []any{"%" + likeEscaper.Replace(q.Term) + "%"}

	if c := q.Price; c != nil {
		switch {
		case c.Min != nil && c.Max != nil:
			conditions = append(conditions, fmt.Sprintf("p.discount_price BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
			args = append(args, *c.Min, *c.Max)
		case c.Min != nil:
			conditions = append(conditions, fmt.Sprintf("p.discount_price >= $%d", len(args)+1))
			args = append(args, *c.Min)
		case c.Max != nil:
			conditions = append(conditions, fmt.Sprintf("p.discount_price <= $%d", len(args)+1))
			args = append(args, *c.Max)
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func orderBy(sortBy string) string {
	switch sortBy {
	case domain.SortPriceAsc:
		return "ORDER BY p.discount_price ASC, p.product_id ASC"
	case domain.SortPriceDesc:
		return "ORDER BY p.discount_price DESC, p.product_id ASC"
	default:
		return "ORDER BY p.product_id ASC"
	}
}

// Search runs the count and page queries concurrently. Both share the same
// WHERE clause; an out-of-range page returns no rows and the real total.
func (e *Engine) Search(ctx context.Context, q domain.StrategyQuery) (domain.StrategyResult, error) {
	where, args := buildWhere(q)

	countQuery := "SELECT count(*)" + productFrom + "\n\t\t" + where
	pageQuery := fmt.Sprintf("SELECT%s%s\n\t\t%s\n\t\t%s\n\t\tLIMIT $%d OFFSET $%d",
		productColumns, productFrom, where, orderBy(q.Sort), len(args)+1, len(args)+2)
	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset())

	var (
		total   int64
		records []domain.ProductRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ctx, end := database.TraceQuery(gctx, "search.count", countQuery)
		defer func() { end(err) }()

		if err = e.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("postgres search count: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		ctx, end := database.TraceQuery(gctx, "search.page", pageQuery)
		defer func() { end(err) }()

		records, err = e.queryRecords(ctx, pageQuery, pageArgs...)
		if err != nil {
			return fmt.Errorf("postgres search page: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.StrategyResult{}, err
	}

	return domain.StrategyResult{Records: records, Total: total}, nil
}

// ListForIndex returns up to limit products with product_id greater than
// afterID, in product_id order.
func (e *Engine) ListForIndex(ctx context.Context, afterID int64, limit int) (_ []domain.ProductRecord, err error) {
	query := "SELECT" + productColumns + productFrom + `
		WHERE p.product_id > $1
		ORDER BY p.product_id ASC
		LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "index.list", query)
	defer func() { end(err) }()

	records, err := e.queryRecords(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres list for index: %w", err)
	}
	return records, nil
}

// Ping checks that the database answers queries.
func (e *Engine) Ping(ctx context.Context) error {
	var one int
	if err := e.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func (e *Engine) queryRecords(ctx context.Context, query string, args ...any) ([]domain.ProductRecord, error) {
	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ProductRecord, 0)
	for rows.Next() {
		var r domain.ProductRecord
		if err := rows.Scan(
			&r.ProductID,
			&r.Name,
			&r.MRP,
			&r.DiscountPrice,
			&r.Qty,
			&r.Image,
			&r.CategoryName,
			&r.CategoryDescription,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return records, nil
}

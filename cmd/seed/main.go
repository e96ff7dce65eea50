// Command seed creates the products and categories tables and fills them
// with a deterministic catalogue for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/utafrali/hybridsearch/internal/config"
	"github.com/utafrali/hybridsearch/pkg/database"
	"github.com/utafrali/hybridsearch/pkg/logger"
)

const batchSize = 500

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	category_id   INTEGER PRIMARY KEY,
	category_name TEXT NOT NULL,
	category_desc TEXT
);

CREATE TABLE IF NOT EXISTS products (
	product_id     BIGINT PRIMARY KEY,
	name           TEXT NOT NULL,
	mrp_in_inr     NUMERIC(12, 2) NOT NULL,
	discount_price NUMERIC(12, 2) NOT NULL,
	qty            INTEGER NOT NULL DEFAULT 0,
	image          TEXT,
	category_id    INTEGER REFERENCES categories (category_id)
);

CREATE INDEX IF NOT EXISTS idx_products_discount_price ON products (discount_price);
`

func main() {
	count := flag.Int("count", 10000, "number of products to generate")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("search-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, *count, *seed, log)
	cancel()
	if err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, count int, seed int64, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	for _, c := range categories {
		if _, err := pool.Exec(ctx,
			`INSERT INTO categories (category_id, category_name, category_desc)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (category_id) DO UPDATE
			 SET category_name = EXCLUDED.category_name, category_desc = EXCLUDED.category_desc`,
			c.ID, c.Name, c.Description,
		); err != nil {
			return fmt.Errorf("insert category %q: %w", c.Name, err)
		}
	}
	log.Info("categories seeded", slog.Int("count", len(categories)))

	products := generateProducts(rand.New(rand.NewSource(seed)), count)
	for start := 0; start < len(products); start += batchSize {
		end := min(start+batchSize, len(products))
		query, args := insertProducts(products[start:end])
		if _, err := pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert products %d-%d: %w", start+1, end, err)
		}
		log.Info("products batch inserted", slog.Int("through", end), slog.Int("total", len(products)))
	}

	log.Info("seed complete", slog.Int("products", len(products)))
	return nil
}

// insertProducts builds one multi-row upsert.
func insertProducts(batch []generatedProduct) (string, []any) {
	const cols = 7
	var sb strings.Builder
	sb.WriteString("INSERT INTO products (product_id, name, mrp_in_inr, discount_price, qty, image, category_id) VALUES ")

	args := make([]any, 0, len(batch)*cols)
	for i, p := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, p.ProductID, p.Name, p.MRP, p.DiscountPrice, p.Qty, p.Image, p.CategoryID)
	}
	sb.WriteString(` ON CONFLICT (product_id) DO UPDATE SET
		name = EXCLUDED.name,
		mrp_in_inr = EXCLUDED.mrp_in_inr,
		discount_price = EXCLUDED.discount_price,
		qty = EXCLUDED.qty,
		image = EXCLUDED.image,
		category_id = EXCLUDED.category_id`)
	return sb.String(), args
}

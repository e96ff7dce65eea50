package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utafrali/hybridsearch/internal/engine"
	"github.com/utafrali/hybridsearch/pkg/logger"
)

// ErrReindexRunning is returned by Start while a previous run is in progress.
var ErrReindexRunning = errors.New("reindex already running")

// Reindexer copies every product from the system of record into the search
// index in product_id order.
type Reindexer struct {
	source    engine.ProductSource
	indexer   engine.Indexer
	batchSize int
	logger    *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewReindexer creates a reindexer that reads batchSize products per page.
func NewReindexer(source engine.ProductSource, indexer engine.Indexer, batchSize int, logger *slog.Logger) *Reindexer {
	if batchSize < 1 {
		batchSize = 500
	}
	return &Reindexer{
		source:    source,
		indexer:   indexer,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Reindex runs synchronously and returns the number of products indexed. On
// error the count covers the batches written before the failure.
func (r *Reindexer) Reindex(ctx context.Context) (int, error) {
	log := logger.WithContext(ctx, r.logger)
	start := time.Now()

	var (
		total   int
		afterID int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("reindex: %w", err)
		}

		batch, err := r.source.ListForIndex(ctx, afterID, r.batchSize)
		if err != nil {
			return total, fmt.Errorf("reindex list after %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}
		if err := r.indexer.BulkIndex(ctx, batch); err != nil {
			return total, fmt.Errorf("reindex batch after %d: %w", afterID, err)
		}

		total += len(batch)
		reindexedProducts.Add(float64(len(batch)))
		afterID = batch[len(batch)-1].ProductID

		log.DebugContext(ctx, "reindex batch written",
			slog.Int("batch", len(batch)),
			slog.Int64("last_product_id", afterID),
		)

		if len(batch) < r.batchSize {
			break
		}
	}

	log.InfoContext(ctx, "reindex completed",
		slog.Int("count", total),
		slog.Duration("took", time.Since(start)),
	)
	return total, nil
}

// Start runs Reindex in the background. The run outlives ctx's cancellation
// but keeps its values. It returns ErrReindexRunning if a run is active.
func (r *Reindexer) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrReindexRunning
	}
	runCtx := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)

		if _, err := r.Reindex(runCtx); err != nil {
			logger.WithContext(runCtx, r.logger).ErrorContext(runCtx, "background reindex failed",
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// Running reports whether a background run is active.
func (r *Reindexer) Running() bool {
	return r.running.Load()
}

// Wait blocks until background runs have finished.
func (r *Reindexer) Wait() {
	r.wg.Wait()
}

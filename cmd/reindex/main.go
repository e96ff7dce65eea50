// Command reindex copies every product from PostgreSQL into the
// Elasticsearch products index and exits.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/hybridsearch/internal/app"
	"github.com/utafrali/hybridsearch/internal/config"
	"github.com/utafrali/hybridsearch/internal/service"
	"github.com/utafrali/hybridsearch/pkg/logger"
)

func main() {
	recreate := flag.Bool("recreate", false, "drop and recreate the index before copying")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("search-reindex", cfg.LogLevel)

	if cfg.SearchEngine != config.EngineElasticsearch {
		log.Error("reindex requires SEARCH_ENGINE=elasticsearch", slog.String("engine", cfg.SearchEngine))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, *recreate, log)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, recreate bool, log *slog.Logger) int {
	backends, err := app.NewBackends(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect backends", slog.String("error", err.Error()))
		return 1
	}
	defer backends.Close()

	if recreate {
		if err := backends.Elasticsearch.RecreateIndex(ctx); err != nil {
			log.Error("failed to recreate index", slog.String("error", err.Error()))
			return 1
		}
		log.Info("index recreated", slog.String("index", backends.Elasticsearch.IndexName()))
	}

	n, err := service.NewReindexer(backends.Source, backends.Indexer, cfg.ReindexBatchSize, log).Reindex(ctx)
	if err != nil {
		log.Error("reindex failed", slog.Int("indexed", n), slog.String("error", err.Error()))
		return 1
	}
	log.Info("reindex finished", slog.Int("indexed", n))
	return 0
}

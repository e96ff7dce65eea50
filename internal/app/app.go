package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/hybridsearch/internal/cache"
	"github.com/utafrali/hybridsearch/internal/config"
	"github.com/utafrali/hybridsearch/internal/domain"
	"github.com/utafrali/hybridsearch/internal/engine"
	esengine "github.com/utafrali/hybridsearch/internal/engine/elasticsearch"
	"github.com/utafrali/hybridsearch/internal/engine/memory"
	pgengine "github.com/utafrali/hybridsearch/internal/engine/postgres"
	"github.com/utafrali/hybridsearch/internal/event"
	handler "github.com/utafrali/hybridsearch/internal/handler/http"
	"github.com/utafrali/hybridsearch/internal/service"
	"github.com/utafrali/hybridsearch/pkg/database"
	"github.com/utafrali/hybridsearch/pkg/health"
	"github.com/utafrali/hybridsearch/pkg/httpclient"
	pkgkafka "github.com/utafrali/hybridsearch/pkg/kafka"
	"github.com/utafrali/hybridsearch/pkg/middleware"
	"github.com/utafrali/hybridsearch/pkg/tracing"
)

const serviceName = "search-service"

// Idempotency keys for consumed events are kept this long.
const eventDedupTTL = 24 * time.Hour

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	reindexer      *service.Reindexer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	done           chan struct{}
	tracerShutdown func(context.Context) error
}

// Backends holds the engines selected by SEARCH_ENGINE.
type Backends struct {
	Strategies map[domain.Mode]engine.Strategy
	Suggester  engine.Suggester
	Indexer    engine.Indexer
	// Source is nil when the engine has no separate system of record.
	Source engine.ProductSource

	Pool          *pgxpool.Pool
	Elasticsearch *esengine.Engine
}

// NewBackends connects the search backends for cfg.SearchEngine.
func NewBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	if cfg.SearchEngine == config.EngineMemory {
		eng := memory.New()
		logger.Info("in-memory search engine initialized")
		return &Backends{
			Strategies: map[domain.Mode]engine.Strategy{
				domain.ModeLexical:   eng,
				domain.ModeRelevance: eng,
			},
			Suggester: eng,
			Indexer:   eng,
		}, nil
	}

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	lexical := pgengine.New(pool)

	transport := httpclient.NewBreakerTransport(
		httpclient.NewTransport(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("elasticsearch"),
		logger,
	)
	es, err := esengine.New(ctx, esengine.Config{
		URL:       cfg.ElasticsearchURL,
		Index:     cfg.ElasticsearchIndex,
		Username:  cfg.ElasticsearchUsername,
		Password:  cfg.ElasticsearchPassword,
		Transport: transport,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init elasticsearch engine: %w", err)
	}
	logger.Info("elasticsearch search engine initialized",
		slog.String("url", cfg.ElasticsearchURL),
		slog.String("index", es.IndexName()),
	)

	return &Backends{
		Strategies: map[domain.Mode]engine.Strategy{
			domain.ModeLexical:   lexical,
			domain.ModeRelevance: es,
		},
		Suggester:     es,
		Indexer:       es,
		Source:        lexical,
		Pool:          pool,
		Elasticsearch: es,
	}, nil
}

// Close releases backend connections.
func (b *Backends) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	backends, err := NewBackends(ctx, cfg, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			backends.Close()
			_ = tracerShutdown(context.Background())
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.Redis().Addr()),
			slog.Int("db", cfg.RedisDB),
		)
	}

	// Build the service layer.
	normalizer, err := service.NewNormalizer(cfg.BaseURL, cfg.UploadPath)
	if err != nil {
		backends.Close()
		_ = tracerShutdown(context.Background())
		return nil, fmt.Errorf("init normalizer: %w", err)
	}
	searchService := service.NewSearchService(backends.Strategies, normalizer, service.Options{
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		SuggestLimit: cfg.SuggestDefaultSize,
		QueryTimeout: cfg.QueryTimeout(),
	}, logger).
		WithSuggester(backends.Suggester).
		WithIndexer(backends.Indexer)
	if rdb != nil && cfg.CacheTTL() > 0 {
		searchService.WithCache(cache.NewResultCache(rdb, cfg.CacheTTL()))
		logger.Info("search result cache enabled", slog.Duration("ttl", cfg.CacheTTL()))
	}

	var reindexer *service.Reindexer
	if backends.Source != nil {
		reindexer = service.NewReindexer(backends.Source, backends.Indexer, cfg.ReindexBatchSize, logger)
	}

	// Kafka consumer for product events.
	var consumer *pkgkafka.Consumer
	if cfg.KafkaEnabled {
		var store pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(eventDedupTTL)
		if rdb != nil {
			store = pkgkafka.NewRedisIdempotencyStore(rdb, "search:event", eventDedupTTL)
		}
		eventConsumer := event.NewConsumer(searchService, logger)
		consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topics:   event.Topics(),
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, pkgkafka.IdempotentHandler(store, cfg.KafkaGroupID, eventConsumer.Handle, logger), logger)
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Any("topics", event.Topics()),
		)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	if backends.Pool != nil {
		pool := backends.Pool
		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	}
	if backends.Elasticsearch != nil {
		healthHandler.RegisterCritical("elasticsearch", backends.Elasticsearch.Ping)
	}
	if rdb != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// HTTP router.
	done := make(chan struct{})
	routerCfg := handler.RouterConfig{
		ServiceName:    serviceName,
		CORS:           middleware.DefaultCORSConfig(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		Done:           done,
	}
	routerCfg.CORS.AllowedOrigins = cfg.CORSAllowedOrigins
	if cfg.AuthEnabled {
		routerCfg.Auth = &middleware.AuthConfig{Secret: cfg.AuthJWTSecret, CookieName: cfg.AuthCookieName}
	}
	searchHandler := handler.NewSearchHandler(searchService, reindexer, logger)
	router := handler.NewRouter(searchHandler, healthHandler, routerCfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           backends.Pool,
		rdb:            rdb,
		reindexer:      reindexer,
		consumer:       consumer,
		httpServer:     httpServer,
		done:           done,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and Kafka consumer, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	close(a.done)

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// Let a background reindex finish before closing the pool it reads from.
	if a.reindexer != nil && a.reindexer.Running() {
		a.logger.Info("waiting for background reindex")
		a.reindexer.Wait()
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

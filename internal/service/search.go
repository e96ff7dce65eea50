package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/hybridsearch/internal/domain"
	"github.com/utafrali/hybridsearch/internal/engine"
	"github.com/utafrali/hybridsearch/internal/query"
	apperrors "github.com/utafrali/hybridsearch/pkg/errors"
	"github.com/utafrali/hybridsearch/pkg/logger"
	"github.com/utafrali/hybridsearch/pkg/pagination"
	"github.com/utafrali/hybridsearch/pkg/validator"
)

// ResultCache stores assembled result pages. Implementations must be safe
// for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.ResultPage, bool, error)
	Set(ctx context.Context, key string, page *domain.ResultPage) error
	Invalidate(ctx context.Context) error
}

// Options bounds paging and request duration.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	SuggestLimit int
	// QueryTimeout bounds each backend call. Zero disables it.
	QueryTimeout time.Duration
}

// SearchService implements the business logic for search operations.
type SearchService struct {
	strategies map[domain.Mode]engine.Strategy
	suggester  engine.Suggester
	indexer    engine.Indexer
	normalizer *Normalizer
	cache      ResultCache
	opts       Options
	logger     *slog.Logger
}

// NewSearchService creates a search service over the given strategies. A mode
// without a strategy is rejected as invalid input.
func NewSearchService(
	strategies map[domain.Mode]engine.Strategy,
	normalizer *Normalizer,
	opts Options,
	logger *slog.Logger,
) *SearchService {
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.SuggestLimit < 1 {
		opts.SuggestLimit = 5
	}
	return &SearchService{
		strategies: strategies,
		normalizer: normalizer,
		opts:       opts,
		logger:     logger,
	}
}

// WithSuggester enables Suggest.
func (s *SearchService) WithSuggester(sg engine.Suggester) *SearchService {
	s.suggester = sg
	return s
}

// WithIndexer enables IndexProduct and DeleteProduct.
func (s *SearchService) WithIndexer(ix engine.Indexer) *SearchService {
	s.indexer = ix
	return s
}

// WithCache enables result caching.
func (s *SearchService) WithCache(c ResultCache) *SearchService {
	s.cache = c
	return s
}

// Search interprets the raw query, runs it on the strategy selected by the
// request mode and assembles the result page.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.ResultPage, error) {
	log := logger.WithContext(ctx, s.logger)

	p := pagination.Normalize(req.Page, req.Limit, s.opts.DefaultLimit, s.opts.MaxLimit)
	req = domain.SearchRequest{
		Query: strings.TrimSpace(req.Query),
		Page:  p.Page,
		Limit: p.Limit,
		Sort:  domain.ParseSort(req.Sort),
		Mode:  req.Mode,
	}

	if err := validator.Validate(req); err != nil {
		searchRequests.WithLabelValues(string(req.Mode), outcomeInvalid).Inc()
		return nil, requestError(err)
	}

	strategy, ok := s.strategies[req.Mode]
	if !ok {
		searchRequests.WithLabelValues(string(req.Mode), outcomeInvalid).Inc()
		return nil, apperrors.InvalidInput(fmt.Sprintf("search mode %q is not available", req.Mode))
	}

	key := cacheKey(req)
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			log.WarnContext(ctx, "search cache lookup failed", slog.String("error", err.Error()))
		} else if hit {
			searchRequests.WithLabelValues(string(req.Mode), outcomeCacheHit).Inc()
			return cached, nil
		}
	}

	iq := query.Interpret(req.Query)

	searchCtx := ctx
	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := strategy.Search(searchCtx, domain.StrategyQuery{
		Term:  iq.Term,
		Price: iq.Price,
		Page:  req.Page,
		Limit: req.Limit,
		Sort:  req.Sort,
	})
	searchDuration.WithLabelValues(string(req.Mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		searchRequests.WithLabelValues(string(req.Mode), outcomeError).Inc()
		log.ErrorContext(ctx, "search backend failed",
			slog.String("mode", string(req.Mode)),
			slog.String("term", iq.Term),
			slog.Int("page", req.Page),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Internal(fmt.Errorf("search %s: %w", req.Mode, err))
	}

	page := &domain.ResultPage{
		Total:      res.Total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: pagination.TotalPages(res.Total, req.Limit),
		Sort:       req.Sort,
		Results:    s.normalizer.Views(res.Records),
	}
	searchRequests.WithLabelValues(string(req.Mode), outcomeOK).Inc()
	searchResults.WithLabelValues(string(req.Mode)).Observe(float64(res.Total))

	log.DebugContext(ctx, "search executed",
		slog.String("mode", string(req.Mode)),
		slog.String("term", iq.Term),
		slog.Int64("total", res.Total),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, page); err != nil {
			log.WarnContext(ctx, "search cache store failed", slog.String("error", err.Error()))
		}
	}

	return page, nil
}

// Suggest returns up to limit product names starting with prefix. A limit
// below 1 selects the configured default.
func (s *SearchService) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if s.suggester == nil {
		return nil, apperrors.Unavailable("suggestions are not available")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, apperrors.InvalidInput("suggest prefix is required")
	}
	limit = pagination.Normalize(1, limit, s.opts.SuggestLimit, s.opts.MaxLimit).Limit

	names, err := s.suggester.Suggest(ctx, prefix, limit)
	if err != nil {
		logger.WithContext(ctx, s.logger).ErrorContext(ctx, "suggest failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Internal(fmt.Errorf("suggest: %w", err))
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// IndexProduct adds or replaces a product in the search index.
func (s *SearchService) IndexProduct(ctx context.Context, product *domain.ProductRecord) error {
	if s.indexer == nil {
		return apperrors.Unavailable("search index is not configured")
	}
	if product == nil || product.ProductID <= 0 {
		return apperrors.InvalidInput("product_id is required")
	}
	if err := s.indexer.Index(ctx, product); err != nil {
		return fmt.Errorf("index product %d: %w", product.ProductID, err)
	}
	s.invalidate(ctx)

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "product indexed",
		slog.Int64("product_id", product.ProductID),
		slog.String("name", product.Name),
	)
	return nil
}

// DeleteProduct removes a product from the search index.
func (s *SearchService) DeleteProduct(ctx context.Context, productID int64) error {
	if s.indexer == nil {
		return apperrors.Unavailable("search index is not configured")
	}
	if productID <= 0 {
		return apperrors.InvalidInput("product_id is required")
	}
	if err := s.indexer.Delete(ctx, productID); err != nil {
		return fmt.Errorf("delete product %d: %w", productID, err)
	}
	s.invalidate(ctx)

	logger.WithContext(ctx, s.logger).InfoContext(ctx, "product deleted from index",
		slog.Int64("product_id", productID),
	)
	return nil
}

func (s *SearchService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.WithContext(ctx, s.logger).WarnContext(ctx, "search cache invalidation failed",
			slog.String("error", err.Error()),
		)
	}
}

// requestError maps validation failures on the normalized request to the
// caller-facing messages.
func requestError(err error) error {
	var ve *validator.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	switch {
	case ve.Has("q"):
		return apperrors.InvalidInput("search query is required")
	case ve.Has("mode"):
		return apperrors.InvalidInput("unknown search mode")
	default:
		return apperrors.InvalidInput(ve.Error())
	}
}

func cacheKey(req domain.SearchRequest) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", req.Mode, req.Page, req.Limit, req.Sort, strings.ToLower(req.Query))
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/hybridsearch/internal/domain"
)

const keyPrefix = "search:result:"

// Number of keys deleted per DEL during Invalidate.
const invalidateBatch = 256

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "search_cache_lookups_total",
		Help: "Result cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)

// ResultCache stores result pages in Redis as JSON with a fixed TTL.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache creates a Redis-backed result cache.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached page for key. A miss is not an error.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.ResultPage, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			lookups.WithLabelValues("miss").Inc()
			return nil, false, nil
		}
		lookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("redis get result: %w", err)
	}

	var page domain.ResultPage
	if err := json.Unmarshal(data, &page); err != nil {
		lookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("unmarshal result: %w", err)
	}

	lookups.WithLabelValues("hit").Inc()
	return &page, true, nil
}

// Set stores page under key with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, key string, page *domain.ResultPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set result: %w", err)
	}

	return nil
}

// Invalidate removes every cached page.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", invalidateBatch).Iterator()

	keys := make([]string, 0, invalidateBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == invalidateBatch {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del results: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan results: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del results: %w", err)
		}
	}
	return nil
}

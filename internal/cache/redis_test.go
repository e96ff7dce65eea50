package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/hybridsearch/internal/domain"
)

func setupTestRedis(t *testing.T) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewResultCache(client, time.Minute), mr
}

func samplePage() *domain.ResultPage {
	return &domain.ResultPage{
		Total:      3,
		Page:       1,
		Limit:      2,
		TotalPages: 2,
		Sort:       domain.SortPriceAsc,
		Results: []domain.ProductView{
			{ProductID: 1, Name: "Running Shoes", MRP: 900, DiscountPrice: 450, Qty: 4,
				Image: "http://localhost:5000/uploads/product-images/r.png", CategoryName: "Footwear"},
			{ProductID: 3, Name: "Canvas Shoes", MRP: 998, DiscountPrice: 499, Qty: 1},
		},
	}
}

func TestResultCache_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	page, hit, err := c.Get(context.Background(), "lexical:1:10:relevance:shoes")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, page)
}

func TestResultCache_SetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	key := "relevance:1:2:asc:shoes"

	require.NoError(t, c.Set(ctx, key, samplePage()))
	assert.True(t, mr.Exists(keyPrefix+key))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+key))

	page, hit, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, samplePage(), page)
}

func TestResultCache_Expires(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", samplePage()))
	mr.FastForward(2 * time.Minute)

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestResultCache_CorruptEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(keyPrefix+"k", "{not json"))

	_, hit, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, hit)
}

func TestResultCache_Invalidate(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	for i := 0; i < invalidateBatch+10; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("lexical:%d:10:relevance:shoes", i), samplePage()))
	}
	require.NoError(t, mr.Set("cart:user-1", "unrelated"))

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, []string{"cart:user-1"}, mr.Keys())
}

func TestResultCache_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "k", samplePage()))
	assert.Error(t, c.Invalidate(context.Background()))
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadline/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisTreeCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTreeCache(client, time.Minute), mr
}

func sampleCategories() []domain.Category {
	return []domain.Category{
		{ID: 1, Slug: "men", Name: "Men", ProductCount: 2},
		{ID: 2, ParentID: 1, Slug: "shirts", Name: "Shirts", SortOrder: 1},
	}
}

func TestRedisTreeCache_RoundTrip(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sampleCategories()))
	assert.True(t, mr.Exists(treeKey))
	assert.Equal(t, time.Minute, mr.TTL(treeKey))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[1].ParentID)
	assert.Equal(t, 2, got[0].ProductCount)
}

func TestRedisTreeCache_ExpiresAndInvalidates(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sampleCategories()))
	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sampleCategories()))
	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists(treeKey))
}

func TestRedisTreeCache_CorruptValue(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(treeKey, "{not json"))

	_, ok, err := c.Get(context.Background())
	assert.False(t, ok)
	assert.ErrorContains(t, err, "unmarshal category tree")
}

func TestRedisTreeCache_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, _, err := c.Get(context.Background())
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), sampleCategories()))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	client.Close()

	_, err = Connect(context.Background(), "http://nope")
	assert.ErrorContains(t, err, "parse redis url")
}

func TestMemoryTreeCache(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryTreeCache(time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, _ := c.Get(ctx)
	assert.False(t, ok)

	cats := sampleCategories()
	require.NoError(t, c.Set(ctx, cats))
	cats[0].Name = "mutated"

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Men", got[0].Name)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, cats))
	require.NoError(t, c.Invalidate(ctx))
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok)
}

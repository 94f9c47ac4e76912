// Package cache holds the category tree snapshot between requests. The
// snapshot is the flat category listing; callers rebuild the arena from it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"threadline/internal/domain"
)

const treeKey = "threadline:categories:tree"

// TreeCache stores the flat category listing. A miss is (nil, false, nil).
type TreeCache interface {
	Get(ctx context.Context) ([]domain.Category, bool, error)
	Set(ctx context.Context, cats []domain.Category) error
	Invalidate(ctx context.Context) error
}

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

type RedisTreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTreeCache(client *redis.Client, ttl time.Duration) *RedisTreeCache {
	return &RedisTreeCache{client: client, ttl: ttl}
}

func (r *RedisTreeCache) Get(ctx context.Context) ([]domain.Category, bool, error) {
	data, err := r.client.Get(ctx, treeKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get category tree: %w", err)
	}
	var cats []domain.Category
	if err := json.Unmarshal(data, &cats); err != nil {
		return nil, false, fmt.Errorf("unmarshal category tree: %w", err)
	}
	return cats, true, nil
}

func (r *RedisTreeCache) Set(ctx context.Context, cats []domain.Category) error {
	data, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("marshal category tree: %w", err)
	}
	if err := r.client.Set(ctx, treeKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set category tree: %w", err)
	}
	return nil
}

func (r *RedisTreeCache) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, treeKey).Err(); err != nil {
		return fmt.Errorf("redis del category tree: %w", err)
	}
	return nil
}

// MemoryTreeCache is the single-process fallback used when no REDIS_URL is set.
type MemoryTreeCache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	cats      []domain.Category
	fetchedAt time.Time
	valid     bool
}

func NewMemoryTreeCache(ttl time.Duration) *MemoryTreeCache {
	return &MemoryTreeCache{ttl: ttl, now: time.Now}
}

func (m *MemoryTreeCache) Get(_ context.Context) ([]domain.Category, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.valid || m.now().Sub(m.fetchedAt) >= m.ttl {
		return nil, false, nil
	}
	out := make([]domain.Category, len(m.cats))
	copy(out, m.cats)
	return out, true, nil
}

func (m *MemoryTreeCache) Set(_ context.Context, cats []domain.Category) error {
	cp := make([]domain.Category, len(cats))
	copy(cp, cats)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cats = cp
	m.fetchedAt = m.now()
	m.valid = true
	return nil
}

func (m *MemoryTreeCache) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cats = nil
	m.valid = false
	return nil
}

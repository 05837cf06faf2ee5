package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReviewCache guarda revisões em <prefix>:<key> com expiração.
type RedisReviewCache struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisReviewCache(rdb redis.Cmdable, prefix string) *RedisReviewCache {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "codereview:review"
	}
	return &RedisReviewCache{rdb: rdb, prefix: prefix}
}

func (c *RedisReviewCache) key(k string) string { return c.prefix + ":" + k }

func (c *RedisReviewCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("review cache get: %w", err)
	}
	return v, true, nil
}

func (c *RedisReviewCache) Set(ctx context.Context, key, text string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.key(key), text, ttl).Err(); err != nil {
		return fmt.Errorf("review cache set: %w", err)
	}
	return nil
}

// MemoryReviewCache é a alternativa sem Redis (um processo só, sem limite de tamanho).
// Entradas vencidas saem no Get da própria chave ou na limpeza periódica (StartJanitor).
type MemoryReviewCache struct {
	mu           sync.Mutex
	entries      map[string]memoryEntry
	cleanupEvery time.Duration
	now          func() time.Time
}

type memoryEntry struct {
	text      string
	expiresAt time.Time
}

type MemoryCacheOption func(*MemoryReviewCache)

func WithCacheCleanupEvery(d time.Duration) MemoryCacheOption {
	return func(c *MemoryReviewCache) { c.cleanupEvery = d }
}

func NewMemoryReviewCache(opts ...MemoryCacheOption) *MemoryReviewCache {
	c := &MemoryReviewCache{
		entries:      make(map[string]memoryEntry),
		cleanupEvery: 5 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryReviewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cleanup remove todas as entradas vencidas.
func (c *MemoryReviewCache) Cleanup() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

// StartJanitor chama Cleanup periodicamente até o ctx ser cancelado.
func (c *MemoryReviewCache) StartJanitor(ctx context.Context) {
	if c.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(c.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (c *MemoryReviewCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.text, true, nil
}

func (c *MemoryReviewCache) Set(_ context.Context, key, text string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.entries[key] = memoryEntry{text: text, expiresAt: exp}
	return nil
}

// Package dedupe guards notification delivery so each fire time is delivered once,
// even with several dispatchers running against the same store.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Guard interface {
	// AcquireOnce reports whether the caller is the first to claim key within ttl
	AcquireOnce(ctx context.Context, key string, ttl time.Duration) bool
	// Release gives up a claim so a failed delivery can be retried
	Release(ctx context.Context, key string)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

const keyPrefix = "pillgood:delivered:"

// RedisGuard claims keys with SETNX. It fails open: when Redis is unreachable the
// delivery proceeds, trading a possible duplicate for a missed reminder.
type RedisGuard struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisGuard(client *redis.Client, logger *zap.Logger) *RedisGuard {
	return &RedisGuard{client: client, logger: logger}
}

func (g *RedisGuard) AcquireOnce(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := g.client.SetNX(ctx, keyPrefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		g.logger.Warn("dedupe unavailable, delivering anyway", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

func (g *RedisGuard) Release(ctx context.Context, key string) {
	if err := g.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		g.logger.Warn("failed to release dedupe key", zap.String("key", key), zap.Error(err))
	}
}

// Memory is the in-process guard used when no Redis is configured
type Memory struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]time.Time), now: time.Now}
}

func (m *Memory) AcquireOnce(_ context.Context, key string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[key]; ok {
		return false
	}
	m.seen[key] = now.Add(ttl)
	return true
}

func (m *Memory) Release(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
}

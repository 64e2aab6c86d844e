package httptransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding-window rate limiter keyed by client+scope.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) (bool, error)
}

// MemoryLimiter is the in-process sliding window for single-instance
// deployments and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string][]time.Time
}

func NewMemoryLimiter(window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		window:  window,
		buckets: make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	kept := l.buckets[key][:0]
	for _, ts := range l.buckets[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		l.buckets[key] = kept
		return false, nil
	}
	l.buckets[key] = append(kept, time.Now())
	return true, nil
}

// RedisLimiter implements the same sliding window over a redis sorted set so
// the budget is shared across instances. Timestamps are set members scored by
// unix nanos; members older than the window are trimmed on each check.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-l.window).UnixNano()
	redisKey := "ratelimit:" + key

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", cutoff))
	count := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}

	if count.Val() >= int64(limit) {
		return false, nil
	}

	member := fmt.Sprintf("%d", now.UnixNano())
	pipe = l.client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit record: %w", err)
	}
	return true, nil
}

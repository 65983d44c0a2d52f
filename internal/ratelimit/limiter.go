// Package ratelimit implements a fixed-window request limiter for the
// authorization endpoint. The window is approximate: a burst straddling two
// windows can briefly see up to twice the limit, which is acceptable for
// abuse protection.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	// Allow reports whether the key is under its limit for the current window
	// and consumes one slot when it is.
	Allow(ctx context.Context, key string) (bool, error)
}

// Redis counts requests in redis so the limit holds across replicas.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window}
}

func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "ratelimit:" + key

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	// ExpireNX sets the TTL only when the key has none, i.e. on the first
	// request of a window. Later requests must not push the window end out,
	// or steady traffic would accumulate count across windows and never
	// reset.
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return count.Val() <= int64(l.limit), nil
}

// Memory is the single-process fallback when redis is not configured.
type Memory struct {
	mu        sync.Mutex
	counts    map[string]*window
	limit     int
	period    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type window struct {
	start time.Time
	count int
}

func NewMemory(limit int, period time.Duration) *Memory {
	return &Memory{
		counts: make(map[string]*window),
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

func (l *Memory) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.counts[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.counts[key] = &window{start: now, count: 1}
		return true, nil
	}
	w.count++
	return w.count <= l.limit, nil
}

// sweep drops expired windows at most once per period so the map does not
// grow with every user ID ever seen. Callers hold the mutex.
func (l *Memory) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.period {
		return
	}
	for key, w := range l.counts {
		if now.Sub(w.start) >= l.period {
			delete(l.counts, key)
		}
	}
	l.lastSweep = now
}

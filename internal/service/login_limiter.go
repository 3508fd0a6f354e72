package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles repeated login attempts for a key (the submitted
// email). It is consulted at login only; token verification never touches it.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLoginLimiter counts attempts in a fixed window using INCR + EXPIRE.
type RedisLoginLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisLoginLimiter builds a limiter over the shared redis client.
func NewRedisLoginLimiter(client *redis.Client, max int, window time.Duration) *RedisLoginLimiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLoginLimiter{client: client, max: max, window: window}
}

// Allow increments the window counter and reports whether the attempt is
// within budget. Redis being unreachable fails open: login availability is
// preferred over throttling.
func (l *RedisLoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "login_attempts:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		_ = l.client.Expire(ctx, redisKey, l.window).Err()
	}
	return count <= int64(l.max), nil
}

// MemoryLoginLimiter is the in-process fallback used when redis is not
// configured, and the fixture limiter in tests.
type MemoryLoginLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[string]*attemptWindow
}

type attemptWindow struct {
	start time.Time
	count int
}

// NewMemoryLoginLimiter builds an in-process limiter.
func NewMemoryLoginLimiter(max int, window time.Duration) *MemoryLoginLimiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLoginLimiter{max: max, window: window, windows: make(map[string]*attemptWindow)}
}

func (l *MemoryLoginLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]
	if !exists || now.Sub(w.start) >= l.window {
		l.windows[key] = &attemptWindow{start: now, count: 1}
		return true, nil
	}
	w.count++
	return w.count <= l.max, nil
}

package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per key within fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type bucket struct {
	count int
	until time.Time
}

// MemoryLimiter keeps fixed-window counters in process memory. Suitable for a
// single instance.
type MemoryLimiter struct {
	limit int
	per   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

func NewMemoryLimiter(limit int, per time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		per:     per,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.swept) >= m.per {
		for k, b := range m.buckets {
			if now.After(b.until) {
				delete(m.buckets, k)
			}
		}
		m.swept = now
	}
	b, ok := m.buckets[key]
	if !ok || now.After(b.until) {
		b = &bucket{until: now.Add(m.per)}
		m.buckets[key] = b
	}
	if b.count >= m.limit {
		return Decision{RetryAfter: b.until.Sub(now)}, nil
	}
	b.count++
	return Decision{Allowed: true, Remaining: m.limit - b.count}, nil
}

// RedisLimiter shares fixed-window counters between instances through Redis.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int
	per    time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client redis.Cmdable, limit int, per time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		per:    per,
		prefix: "rl:predictions",
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	window := now.UnixNano() / int64(l.per)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, window)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, 2*l.per).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	if count > int64(l.limit) {
		windowEnd := time.Unix(0, (window+1)*int64(l.per))
		return Decision{RetryAfter: windowEnd.Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: l.limit - int(count)}, nil
}

// RateLimit rejects requests over the limiter's budget with 429. Clients are
// keyed on RemoteAddr, so forwarded headers only count once RealIP has
// accepted them from a trusted proxy. Limiter failures let the request
// through.
func RateLimit(limiter Limiter, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			decision, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn().Err(err).Str("client_ip", ip).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
				writeDetail(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func clientIPForRateLimit(r *http.Request) string {
	if addr, ok := remoteAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return r.RemoteAddr
}

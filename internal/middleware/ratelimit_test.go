package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIPForRateLimitIgnoresForwardedHeaders(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded header ignored",
			header:     "203.0.113.1",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "remote host without header",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "ipv6 remote",
			header:     "2001:db8::1",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::2",
		},
		{
			name:       "remote without port",
			remoteAddr: "203.0.113.1",
			want:       "203.0.113.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2, time.Minute)
	limiter.now = fixedClock(start)

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(context.Background(), "203.0.113.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := limiter.Allow(context.Background(), "203.0.113.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	other, err := limiter.Allow(context.Background(), "203.0.113.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are counted separately")

	limiter.now = fixedClock(start.Add(61 * time.Second))
	d, err = limiter.Allow(context.Background(), "203.0.113.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "new window resets the counter")
}

func TestMemoryLimiterDropsExpiredBuckets(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(1, time.Minute)
	limiter.now = fixedClock(start)

	for i := 0; i < 20; i++ {
		_, err := limiter.Allow(context.Background(), fmt.Sprintf("203.0.113.%d", i))
		require.NoError(t, err)
	}
	assert.Len(t, limiter.buckets, 20)

	limiter.now = fixedClock(start.Add(2 * time.Minute))
	_, err := limiter.Allow(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	assert.Len(t, limiter.buckets, 1)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiterSharesCounter(t *testing.T) {
	mr, client := newTestRedis(t)
	now := time.Date(2024, 5, 1, 12, 0, 15, 0, time.UTC)

	first := NewRedisLimiter(client, 2, time.Minute)
	second := NewRedisLimiter(client, 2, time.Minute)
	first.now = fixedClock(now)
	second.now = fixedClock(now)

	d, err := first.Allow(context.Background(), "203.0.113.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = second.Allow(context.Background(), "203.0.113.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = first.Allow(context.Background(), "203.0.113.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 45*time.Second, d.RetryAfter)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, 2*time.Minute, mr.TTL(keys[0]))
}

func TestRedisLimiterReportsBackendFailure(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	_, err := NewRedisLimiter(client, 1, time.Minute).Allow(context.Background(), "203.0.113.1")
	require.Error(t, err)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, assert.AnError
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)
	handler := RateLimit(limiter, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/predictions", nil)
		req.RemoteAddr = "198.51.100.10:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"detail":"Too many requests"}`, second.Body.String())
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	handler := RateLimit(failingLimiter{}, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	limiter := NewMemoryLimiter(2, time.Minute)
	handler := RealIP(nil)(RateLimit(limiter, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	accepted := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/predictions", nil)
		req.RemoteAddr = "198.51.100.10:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusCreated {
			accepted++
		}
	}

	assert.Equal(t, 2, accepted)
	assert.Len(t, limiter.buckets, 1)
}

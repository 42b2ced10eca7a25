package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func TestRateLimiterBurstPerKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 0.001, 2)

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "1.1.1.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "1.1.1.1")
	assert.False(t, ok)

	ok, _ = rl.Allow(ctx, "2.2.2.2")
	assert.True(t, ok, "keys are limited independently")
}

// countingScripter answers EvalSha the way the fixed-window script would.
type countingScripter struct {
	redis.Scripter
	counts map[string]int64
}

func (c *countingScripter) EvalSha(_ context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	c.counts[keys[0]]++
	return redis.NewCmdResult(c.counts[keys[0]], nil)
}

func TestRedisRateLimiter(t *testing.T) {
	s := &countingScripter{counts: map[string]int64{}}
	rl := NewRedisRateLimiter(s, 2, time.Minute, "test")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 3, s.counts["test:ip"])
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

func TestRateLimitHTTP(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	deny := &stubLimiter{allow: false}
	h := RateLimitHTTP(deny, false, "/login")(ok)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"10.0.0.1"}, deny.keys)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/login", nil),
		httptest.NewRequest(http.MethodPost, "/dashboard", nil),
	} {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	broken := &stubLimiter{err: errors.New("redis down")}
	rec = httptest.NewRecorder()
	RateLimitHTTP(broken, false, "/login")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "limiter errors fail open")
}

func TestRateLimitInterceptor(t *testing.T) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.9"), Port: 5555}})
	next := func(context.Context, any) (any, error) { return "ok", nil }

	deny := &stubLimiter{allow: false}
	_, err := RateLimit(deny)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/clinic.v1.ClinicService/Login"}, next)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, []string{"10.0.0.9"}, deny.keys)

	out, err := RateLimit(deny)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/clinic.v1.ClinicService/Dashboard"}, next)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestRateLimitHTTPIgnoresForwardedForByDefault(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimitHTTP(NewRateLimiter(ctx, 0.0001, 1), false, "/login")(ok)

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", net.IPv4(192, 0, 2, byte(i+1)).String())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusNoContent {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed, "a rotating X-Forwarded-For must not open new buckets")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "10.0.0.1", ClientIP(req, false))
	assert.Equal(t, "203.0.113.7", ClientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.1", ClientIP(req, true))
}

func TestRateLimitInterceptorKeysBridgedClient(t *testing.T) {
	next := func(context.Context, any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/clinic.v1.ClinicService/Register"}
	forwarded := metadata.Pairs(ForwardedFor, "203.0.113.7")

	tests := []struct {
		name string
		peer string
		want string
	}{
		{"loopback bridge", "127.0.0.1", "203.0.113.7"},
		{"remote peer cannot claim another address", "10.0.0.9", "10.0.0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP(tt.peer), Port: 5555}})
			ctx = metadata.NewIncomingContext(ctx, forwarded)
			l := &stubLimiter{allow: true}
			_, err := RateLimit(l)(ctx, nil, info, next)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, l.keys)
		})
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/dailypen/internal/pkg/jwt"
)

func TestMemoryLimiter_BlocksOverBudget(t *testing.T) {
	now := time.Now()
	limiter := NewMemoryLimiter(time.Minute, 2, 16)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = limiter.Allow(context.Background(), "other")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryLimiter_ResetsAfterWindow(t *testing.T) {
	now := time.Now()
	limiter := NewMemoryLimiter(time.Hour, 1, 16)
	limiter.now = func() time.Time { return now }

	ok, _ := limiter.Allow(context.Background(), "k")
	require.True(t, ok)
	ok, _ = limiter.Allow(context.Background(), "k")
	require.False(t, ok)

	now = now.Add(time.Hour)
	ok, _ = limiter.Allow(context.Background(), "k")
	require.True(t, ok)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewRedisLimiter(client, "test:rl", time.Minute, 2)

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, mr.Exists("test:rl:k"))
	require.Greater(t, mr.TTL("test:rl:k"), time.Duration(0))

	mr.FastForward(time.Minute + time.Second)
	ok, err = limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}

func newLimitedRouter(limiter Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(limiter))
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit_Returns429(t *testing.T) {
	r := newLimitedRouter(NewMemoryLimiter(time.Minute, 1, 16))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := newLimitedRouter(failingLimiter{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_KeysByUserAfterAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("s3cret")
	r := gin.New()
	r.GET("/me", JWTAuth(secret), RateLimit(NewMemoryLimiter(time.Minute, 1, 16)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func(userID string) int {
		token, err := jwt.GenerateToken(userID, "", secret, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusOK, call("u-1"))
	require.Equal(t, http.StatusTooManyRequests, call("u-1"))
	require.Equal(t, http.StatusOK, call("u-2"))
}

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salesguard/config"
	"salesguard/internal/adapter/http/middleware"
	redisStore "salesguard/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(store middleware.RateLimitChecker, before ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	handlers := append(before, middleware.RateLimiter(store, "test", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/test", handlers...)
	return r
}

func newStore(t *testing.T) *redisStore.RateLimitStore {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisStore.NewRateLimitStore(client)
}

func doGet(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	router := setupRateLimitRouter(newStore(t))

	for i := 0; i < 3; i++ {
		w := doGet(router)
		assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	router := setupRateLimitRouter(newStore(t))

	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, doGet(router).Code)
	}

	w := doGet(router)
	assert.Equal(t, 429, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_KeysByWorker(t *testing.T) {
	store := newStore(t)
	workerA := uuid.New()
	workerB := uuid.New()
	as := func(id uuid.UUID) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(middleware.CtxWorkerID, id)
			c.Next()
		}
	}

	routerA := setupRateLimitRouter(store, as(workerA))
	routerB := setupRateLimitRouter(store, as(workerB))

	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, doGet(routerA).Code)
	}
	assert.Equal(t, 429, doGet(routerA).Code)
	assert.Equal(t, 200, doGet(routerB).Code, "independent counter per worker")
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int64, time.Duration) (*redisStore.RateLimitResult, error) {
	return nil, errors.New("redis: connection refused")
}

func TestRateLimiter_StoreDownAllows(t *testing.T) {
	router := setupRateLimitRouter(failingStore{})

	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, doGet(router).Code)
	}
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules(config.RateLimitConfig{SalesPerMinute: 60, LoginPerMinute: 10})
	assert.Equal(t, int64(60), rules[middleware.GroupSales].Limit)
	assert.Equal(t, int64(10), rules[middleware.GroupAuthLogin].Limit)
	assert.Equal(t, time.Minute, rules[middleware.GroupSales].Window)

	rules = middleware.DefaultRateLimitRules(config.RateLimitConfig{LoginPerMinute: 10})
	_, ok := rules[middleware.GroupSales]
	assert.False(t, ok)
}

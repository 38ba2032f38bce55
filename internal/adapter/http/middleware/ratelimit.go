package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"salesguard/config"
	redisStore "salesguard/internal/adapter/storage/redis"
	"salesguard/pkg/apperror"
	"salesguard/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimitChecker counts a request against a key.
type RateLimitChecker interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// Endpoint groups.
const (
	GroupSales     = "sales"
	GroupAuthLogin = "auth_login"
)

// DefaultRateLimitRules returns the per-group limits from configuration.
// A non-positive limit disables the group.
func DefaultRateLimitRules(cfg config.RateLimitConfig) map[string]RateLimitRule {
	rules := make(map[string]RateLimitRule, 2)
	if cfg.SalesPerMinute > 0 {
		rules[GroupSales] = RateLimitRule{Limit: int64(cfg.SalesPerMinute), Window: time.Minute}
	}
	if cfg.LoginPerMinute > 0 {
		rules[GroupAuthLogin] = RateLimitRule{Limit: int64(cfg.LoginPerMinute), Window: time.Minute}
	}
	return rules
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// When the store is unavailable requests are let through.
func RateLimiter(store RateLimitChecker, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys authenticated callers by worker and everyone
// else by client IP.
func extractIdentifier(c *gin.Context) string {
	if actor, ok := ActorFromContext(c); ok {
		return "worker:" + actor.WorkerID.String()
	}
	return "ip:" + c.ClientIP()
}

package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

const (
	defaultBucketSize    = 100
	defaultRefillRate    = 10
	defaultWindowSeconds = 1
)

// RateLimiter implements a token bucket algorithm using Redis
type RateLimiter struct {
	rdb         *redis.Client
	bucketSize  int
	refillRate  int
	windowInSec int
}

func NewRateLimiter(rdb *redis.Client, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		rdb:         rdb,
		bucketSize:  defaultBucketSize,
		refillRate:  defaultRefillRate,
		windowInSec: defaultWindowSeconds,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// RateLimiterOption defines a function to configure RateLimiter
type RateLimiterOption func(*RateLimiter)

func WithBucketSize(size int) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.bucketSize = size
	}
}

func WithRefillRate(rate int) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.refillRate = rate
	}
}

func WithWindow(seconds int) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.windowInSec = seconds
	}
}

// clientKey buckets authenticated requests per user and anonymous ones per
// IP, so one abusive client cannot exhaust another's budget.
func clientKey(c *gin.Context) string {
	if identity, ok := IdentityFrom(c); ok {
		return fmt.Sprintf("%s:%d", identity.Role, identity.UserID)
	}
	return c.ClientIP()
}

// RateLimit returns a middleware that limits request rates using the token bucket algorithm
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s", clientKey(c))
		now := time.Now().Unix()

		bucketKey := fmt.Sprintf("%s:bucket", key)
		lastUpdateKey := fmt.Sprintf("%s:last_update", key)

		tokens, err := rl.rdb.Get(c, bucketKey).Int()
		if err == redis.Nil {
			tokens = rl.bucketSize
		} else if err != nil {
			c.Error(fmt.Errorf("rate limit check failed: %w", err))
			c.Abort()
			return
		}

		lastUpdate, err := rl.rdb.Get(c, lastUpdateKey).Int64()
		if err == redis.Nil {
			lastUpdate = now
		} else if err != nil {
			c.Error(fmt.Errorf("rate limit check failed: %w", err))
			c.Abort()
			return
		}

		elapsed := now - lastUpdate
		refill := int(elapsed) * rl.refillRate
		tokens = min(tokens+refill, rl.bucketSize)

		if tokens <= 0 {
			retryAfter := float64(1) / float64(rl.refillRate)
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.bucketSize))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(now+1, 10))
			c.Header("Retry-After", fmt.Sprintf("%.2f", retryAfter))
			c.AbortWithStatusJSON(429, &models.APIError{
				Status:        429,
				Message:       "rate limit exceeded",
				MessageClient: "Demasiadas peticiones, espera un momento.",
				Type:          "throttled",
			})
			return
		}

		tokens--
		pipe := rl.rdb.TxPipeline()
		pipe.Set(c, bucketKey, tokens, time.Duration(rl.windowInSec)*time.Second)
		pipe.Set(c, lastUpdateKey, now, time.Duration(rl.windowInSec)*time.Second)
		if _, err := pipe.Exec(c); err != nil {
			c.Error(fmt.Errorf("rate limit update failed: %w", err))
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.bucketSize))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(tokens))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(now+int64(rl.windowInSec), 10))

		c.Next()
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"boostclics/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// KeyFunc picks the identity a limit applies to. An empty key skips limiting.
type KeyFunc func(c *gin.Context) string

// ByIP limits per client address.
func ByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// BySession limits per bearer session; requests without one fall back to the IP.
func BySession(c *gin.Context) string {
	if key := SessionKey(c); key != "" {
		return "session:" + key
	}
	return ByIP(c)
}

// RedisLimiter implements fixed-window rate limiting with INCR/EXPIRE.
// A nil client makes every limit fail-open.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Limit allows maxRequests per window for each key under name.
// key format: rl:<name>:<window_seconds>:<identifier>
func (l *RedisLimiter) Limit(name string, maxRequests int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	windowSec := strconv.FormatInt(int64(window.Seconds()), 10)

	return func(c *gin.Context) {
		if l.client == nil || maxRequests <= 0 {
			c.Next()
			return
		}

		ident := keyFn(c)
		if ident == "" {
			c.Next()
			return
		}
		key := "rl:" + name + ":" + windowSec + ":" + ident

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		val, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			// on Redis error, fail-open (allow) but set header
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", "error", err)
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			l.client.Expire(ctx, key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(name).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(name).Inc()
		c.Next()
	}
}

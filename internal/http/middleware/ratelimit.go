package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	last  time.Time
	count int
}

// SimpleRateLimit is the in-process fallback used when Redis is not
// configured. Each call gets its own window table.
func SimpleRateLimit(name string, maxRequests int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	var mu sync.Mutex
	clients := make(map[string]*clientInfo)

	return func(c *gin.Context) {
		if maxRequests <= 0 {
			c.Next()
			return
		}
		key := keyFn(c)
		now := time.Now()

		mu.Lock()
		ci, ok := clients[key]
		if !ok || now.Sub(ci.last) > window {
			if len(clients) > 10000 {
				// drop expired windows so the table stays bounded
				for k, v := range clients {
					if now.Sub(v.last) > window {
						delete(clients, k)
					}
				}
			}
			clients[key] = &clientInfo{last: now, count: 1}
			mu.Unlock()
			RLRequests.WithLabelValues(name).Inc()
			c.Next()
			return
		}

		ci.count++
		count := ci.count
		mu.Unlock()

		if count > maxRequests {
			RLBlocked.WithLabelValues(name).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(name).Inc()
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
}

// RateLimitPerIP 每 IP 限速
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*rate.Limiter)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		lim, ok := buckets[ip]
		if !ok {
			lim = rate.NewLimiter(rps, burst)
			buckets[ip] = lim
		}
		mu.Unlock()
		if lim.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimit 限制同时在处理的请求数（bcrypt 很吃 CPU）
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

package middleware

import "github.com/gin-gonic/gin"

// NoCache 禁用客户端与代理缓存
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		c.Next()
	}
}

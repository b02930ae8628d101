package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SimpleRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				_ = c.Error(fmt.Errorf("panic: %v", rec))
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"

	"pyrates-identitydb/internal/core/auth"
)

const KeyCredential = "credential"

// BasicCredential 只解析 Basic 头并把口令部分放进上下文；
// 是否放行由 service 决定（读/改需要先定位目标记录）
func BasicCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, pw, ok := auth.ParseBasic(c.GetHeader("Authorization")); ok {
			c.Set(KeyCredential, pw)
		}
		c.Next()
	}
}

// Credential 取出口令；没有凭据时为空串
func Credential(c *gin.Context) string { return c.GetString(KeyCredential) }

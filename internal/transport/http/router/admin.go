package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mdw "pyrates-identitydb/internal/transport/http/middleware"
)

// NewAdminEngine 运维端口：健康检查与 Prometheus 指标，不对外暴露业务接口
func NewAdminEngine(l *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.SimpleRecovery(),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

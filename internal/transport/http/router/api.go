package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pyrates-identitydb/internal/core/server"
	"pyrates-identitydb/internal/transport/http/handler"
	mdw "pyrates-identitydb/internal/transport/http/middleware"
)

// Limits 入口保护参数；零值字段取 DefaultLimits 的值
type Limits struct {
	RPS          float64
	Burst        int
	Concurrency  int64
	MaxBodyBytes int64
	Timeout      time.Duration
	// PerIP 为 true 时按客户端 IP 分桶限速
	PerIP bool
}

func DefaultLimits() Limits {
	return Limits{RPS: 200, Burst: 400, Concurrency: 300, MaxBodyBytes: 16 << 20, Timeout: 10 * time.Second}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.RPS <= 0 {
		l.RPS = d.RPS
	}
	if l.Burst <= 0 {
		l.Burst = d.Burst
	}
	if l.Concurrency <= 0 {
		l.Concurrency = d.Concurrency
	}
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = d.MaxBodyBytes
	}
	if l.Timeout <= 0 {
		l.Timeout = d.Timeout
	}
	return l
}

func NewAPIEngine(l *zap.Logger, h *handler.PyrateHandler, lim Limits) *gin.Engine {
	lim = lim.withDefaults()
	r := server.NewRouter(l)

	limiter := mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst)
	if lim.PerIP {
		limiter = mdw.RateLimitPerIP(rate.Limit(lim.RPS), lim.Burst)
	}

	// 中间件
	r.Use(
		mdw.RequestID(),
		limiter,
		mdw.ConcurrencyLimit(lim.Concurrency),
		mdw.MaxBodyBytes(lim.MaxBodyBytes),
		mdw.Timeout(lim.Timeout),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	// 身份库接口：禁缓存 + 解析 Basic 凭据
	api := r.Group("")
	api.Use(mdw.NoCache(), mdw.BasicCredential())
	h.Mount(api)

	return r
}

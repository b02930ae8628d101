package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter 基础引擎：panic 恢复（带堆栈日志）+ CORS
func NewRouter(l *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(ginzap.RecoveryWithZap(l, true))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))
	return r
}

func StartHTTP(srv *http.Server, l *zap.Logger) error {
	l.Info("http starting", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

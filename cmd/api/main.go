package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pyrates-identitydb/internal/core/auth"
	"pyrates-identitydb/internal/core/config"
	"pyrates-identitydb/internal/core/database"
	"pyrates-identitydb/internal/core/logger"
	"pyrates-identitydb/internal/core/server"
	"pyrates-identitydb/internal/domain"
	"pyrates-identitydb/internal/repo"
	"pyrates-identitydb/internal/service"
	"pyrates-identitydb/internal/transport/http/handler"
	"pyrates-identitydb/internal/transport/http/router"
	"pyrates-identitydb/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))

	log, cleanup := logger.Build(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.Rotate.Enable,
			Filename:   cfg.Log.Rotate.Filename,
			MaxSizeMB:  cfg.Log.Rotate.MaxSizeMB,
			MaxBackups: cfg.Log.Rotate.MaxBackups,
			MaxAgeDays: cfg.Log.Rotate.MaxAgeDays,
			Compress:   cfg.Log.Rotate.Compress,
		},
	})
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)

	ctx := context.Background()

	// 存储后端（失败直接 Fatal）
	store, closeStore := mustOpenStore(ctx, cfg, log)
	defer closeStore()

	if cfg.Store.Seed {
		n, err := repo.Seed(ctx, store)
		if err != nil {
			log.Fatal("seed failed", zap.Error(err))
		}
		if n > 0 {
			log.Info("seeded pyrates", zap.Int("count", n))
		}
	}

	// 依赖
	hasher := utils.NewBcrypt()
	verifier := auth.NewVerifier(cfg.Auth.Secret, hasher)
	svc := service.NewPyrateService(store, verifier, hasher, log)
	svc.RefreshMetrics(ctx)
	if n, err := svc.Count(ctx); err == nil {
		log.Info("identity store ready", zap.String("driver", cfg.Store.Driver), zap.Int64("records", n))
	}

	apiEngine := router.NewAPIEngine(log, handler.NewPyrateHandler(svc, log), router.Limits{
		RPS:          cfg.Limits.RPS,
		Burst:        cfg.Limits.Burst,
		Concurrency:  cfg.Limits.Concurrency,
		MaxBodyBytes: cfg.Limits.MaxBodyBytes,
		Timeout:      time.Duration(cfg.Limits.TimeoutSec) * time.Second,
		PerIP:        cfg.Limits.PerIP,
	})
	apiSrv := server.BuildServer(
		server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port), apiEngine,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)
	adminSrv := server.BuildServer(
		server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port), router.NewAdminEngine(log),
		5*time.Second, 10*time.Second, 60*time.Second,
	)

	baseURL := cfg.PublicURL()
	log.Info("identitydb starting",
		zap.String("addr", apiSrv.Addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("pyrates", baseURL+"/pyrates"),
		zap.String("admin", adminSrv.Addr),
	)

	// 异步启动；任一监听失败立即退出
	for _, s := range []*http.Server{apiSrv, adminSrv} {
		go func(s *http.Server) {
			if err := server.StartHTTP(s, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("listen FAILED", zap.String("addr", s.Addr), zap.Error(err))
			}
		}(s)
	}
	log.Info("identitydb started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)
	log.Info("identitydb stopped gracefully")
}

func mustOpenStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (domain.PyrateRepository, func()) {
	switch cfg.Store.Driver {
	case config.DriverPostgres, config.DriverMySQL:
		db, err := database.NewGorm(database.Opts{
			Driver:             cfg.Store.Driver,
			DSN:                cfg.Store.DSN,
			Username:           cfg.Store.Username,
			Password:           cfg.Store.Password,
			MaxOpenConns:       cfg.Store.MaxOpenConns,
			MaxIdleConns:       cfg.Store.MaxIdleConns,
			ConnMaxLifetimeMin: cfg.Store.ConnMaxLifetimeMin,
			LogLevel:           cfg.Store.LogLevel,
		}, l)
		if err != nil {
			l.Fatal("db open", zap.Error(err))
		}
		r := repo.NewPyrateRepo(db)
		if cfg.Store.AutoMigrate {
			if err := r.AutoMigrate(); err != nil {
				l.Fatal("automigrate failed", zap.Error(err))
			}
			l.Info("automigrate done")
		}
		return r, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	case config.DriverRedis:
		r := repo.NewRedisRepo(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			l.Fatal("redis ping", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		return r, func() { _ = r.Close() }
	default:
		return repo.NewMemoryRepo(), func() {}
	}
}

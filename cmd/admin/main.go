package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"campus-feedback/internal/app"
	"campus-feedback/internal/core/config"
	"campus-feedback/internal/core/logger"
	"campus-feedback/internal/core/server"
	"campus-feedback/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	log = log.With(zap.String("proc", "admin"))
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer a.Close()

	// 路由（后台端）
	r := router.NewAdminEngine(log, a.RouterDeps())

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 35*time.Second, 60*time.Second,
		logger.ToStdLogger(log, zapcore.ErrorLevel))

	baseURL := server.HumanURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- server.StartHTTP(srv, log) }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	case <-ctx.Done():
	}

	if err := server.Shutdown(srv, 10*time.Second); err != nil {
		log.Error("admin api shutdown", zap.Error(err))
	}
	log.Info("admin api stopped gracefully")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/janawaaz/civichub/internal/bootstrap"
	"github.com/janawaaz/civichub/internal/config"
	"github.com/janawaaz/civichub/internal/httpapi"
	"github.com/janawaaz/civichub/internal/logger"
	"github.com/janawaaz/civichub/internal/store/rabbitmq"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, IsProd: cfg.IsProd})
	defer func() { _ = log.Sync() }()

	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer container.Close()

	// async chat is optional; without a broker /chat/async answers 503
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue, log.Named("rabbitmq"))
		if err != nil {
			log.Warn("rabbitmq unavailable, async chat disabled", zap.Error(err))
		} else {
			container.ChatSvc.WithPublisher(pub)
			container.OnClose(pub.Close)
		}
	}

	r := httpapi.NewRouter(container.ChatSvc, httpapi.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
	}, log.Named("http"))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
}

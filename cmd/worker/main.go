package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/janawaaz/civichub/internal/bootstrap"
	"github.com/janawaaz/civichub/internal/config"
	"github.com/janawaaz/civichub/internal/logger"
	"github.com/janawaaz/civichub/internal/store/rabbitmq"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, IsProd: cfg.IsProd}).Named("worker")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer container.Close()

	//  strict concurrency control
	consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, cfg.WorkerConcurrency, log.Named("rabbitmq"))
	if err != nil {
		log.Fatal("rabbitmq connect failed", zap.Error(err))
	}
	container.OnClose(consumer.Close)

	svc := container.ChatSvc
	handle := func(ctx context.Context, jobID string) error {
		start := time.Now()
		err := svc.ProcessJob(ctx, jobID)
		log.Info("job processed", zap.String("job_id", jobID), zap.Duration("cost", time.Since(start)), zap.Bool("ok", err == nil))
		return err
	}

	if err := consumer.Run(ctx, handle); err != nil {
		log.Error("worker stopped", zap.Error(err))
	}
}

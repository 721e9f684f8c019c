package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nadhifr/eventra/internal/config"
	"github.com/nadhifr/eventra/internal/services"
	"github.com/nadhifr/eventra/internal/worker"
	"github.com/nadhifr/eventra/pkg/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.Redis.Addr == "" {
		logger.Error("REDIS_ADDR is required for the email worker")
		os.Exit(1)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = client.Ping(pingCtx).Err()
	pingCancel()
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}

	mailer, err := services.NewSESMailer(cfg.Mail.AWSRegion, cfg.Mail.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize mailer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor := worker.NewEmailProcessor(queue.NewQueue(client, logger), mailer, logger)
	if err := processor.Run(ctx); err != nil {
		logger.Error("worker exited with error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker stopped gracefully")
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/papyrushq/papyrus/internal/api"
	"github.com/papyrushq/papyrus/internal/config"
	"github.com/papyrushq/papyrus/internal/database"
	"github.com/papyrushq/papyrus/internal/eventlog"
	"github.com/papyrushq/papyrus/internal/logging"
	"github.com/papyrushq/papyrus/internal/s3storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, closeLog := logging.Setup(cfg.LogFile, cfg.LogLevel)
	defer closeLog()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Error("ensure schema", "error", err)
		os.Exit(1)
	}
	store := eventlog.NewPGStore(pool)

	objects, err := s3storage.New(cfg)
	if err != nil {
		logger.Error("init storage", "error", err)
		os.Exit(1)
	}
	if err := objects.EnsureBuckets(ctx); err != nil {
		logger.Error("ensure buckets", "error", err)
		os.Exit(1)
	}

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	srv := api.New(cfg, store, objects, queueClient, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

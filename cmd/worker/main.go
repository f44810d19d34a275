package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/papyrushq/papyrus/internal/config"
	"github.com/papyrushq/papyrus/internal/database"
	"github.com/papyrushq/papyrus/internal/eventlog"
	"github.com/papyrushq/papyrus/internal/extract"
	"github.com/papyrushq/papyrus/internal/index"
	"github.com/papyrushq/papyrus/internal/logging"
	"github.com/papyrushq/papyrus/internal/ocr"
	"github.com/papyrushq/papyrus/internal/s3storage"
	"github.com/papyrushq/papyrus/internal/shell"
	"github.com/papyrushq/papyrus/internal/worker"
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

	idx := index.NewHTTPClient(cfg.IndexURL, cfg.IndexTimeout)
	engine := ocr.NewEngine(shell.ExecRunner{}, cfg.TesseractBin, cfg.OCRMyPDFBin, cfg.QPDFBin)

	registry := extract.NewRegistry(
		extract.NewPlainTextExtractor(idx, cfg.IndexTimeout, logger),
		extract.NewPDFTextExtractor(idx, cfg.IndexTimeout, logger),
		ocr.NewImageExtractor(engine, idx, cfg.ProgressWindow, cfg.IndexTimeout, logger),
		ocr.NewPDFOverlayExtractor(engine, idx, objects, cfg.ProgressWindow, cfg.IndexTimeout, logger),
	)
	dispatcher := extract.NewDispatcher(registry, store, logger)
	processor := worker.NewProcessor(objects, dispatcher, cfg.ScratchDir, cfg.OCRLanguages, logger)

	// OCR subprocesses are CPU and IO heavy; concurrency is bounded here,
	// at the deployment level, not inside the dispatcher.
	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Concurrency,
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(processor.Handler()); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

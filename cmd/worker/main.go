package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"weave/api/internal/config"
	"weave/api/internal/queue"
	"weave/api/internal/store"
	"weave/api/internal/worker"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	canvasStore := store.NewCanvasStore(db, cfg.LockTimeout)

	jobQueue, err := queue.New(cfg.RedisURL, cfg.QueueKey)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer jobQueue.Close()

	logger := zerolog.New(zerolog.SyncWriter(os.Stderr)).With().Timestamp().Logger()
	service := worker.New(canvasStore, jobQueue, jobQueue, logger, cfg.WorkerCount, cfg.DequeueTimeout)

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Printf("shutting down, draining in-flight jobs")
		cancel()
	}()

	log.Printf("Weave canvas worker pool starting (%d workers, queue %s)", cfg.WorkerCount, cfg.QueueKey)
	service.Run(runCtx)
}

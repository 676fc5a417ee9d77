package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/manor-engine/internal/config"
	"github.com/jwebster45206/manor-engine/internal/logger"
	"github.com/jwebster45206/manor-engine/internal/services"
	"github.com/jwebster45206/manor-engine/internal/services/events"
	"github.com/jwebster45206/manor-engine/internal/services/queue"
	"github.com/jwebster45206/manor-engine/internal/services/status"
	"github.com/jwebster45206/manor-engine/internal/storage"
	"github.com/jwebster45206/manor-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Manor Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	if cfg.StorageBackend != "redis" {
		log.Error("The worker shares games with the API through Redis", "storage", cfg.StorageBackend)
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()

	// Initialize queue service
	queueClient, err := queue.NewClient(startCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	rdb := queueClient.GetRedisClient()
	turnQueue := queue.NewTurnQueue(queueClient, log)
	log.Info("Queue service initialized successfully")

	// Storage shares the queue's connection.
	store := storage.NewRedisStorageFromClient(rdb, log)
	if err := store.WaitForConnection(startCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage service initialized successfully")

	// Initialize LLM service
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer initCancel()
	llmService, err := services.NewLLMService(initCtx, cfg, log)
	if err != nil {
		log.Error("Failed to create LLM service", "error", err)
		os.Exit(1)
	}
	if err := llmService.InitModel(initCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}
	if c, ok := llmService.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	log.Info("LLM service initialized successfully", "model", cfg.ModelName)

	publisher := events.NewBroadcaster(rdb, log)
	processor := worker.NewTurnProcessor(store, llmService, status.NewRedisLog(rdb, log), publisher, log)
	processor.SetTimeout(cfg.TurnTimeout)
	log.Info("Turn processor initialized successfully", "turn_timeout", cfg.TurnTimeout)

	w := worker.New(turnQueue, processor, rdb, publisher, log, cfg.WorkerID)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- w.Start()
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	select {
	case <-quit:
		log.Info("Worker shutdown signal received")
		w.Stop()
		// Give worker time to finish current request
		select {
		case <-done:
		case <-time.After(cfg.TurnTimeout):
			log.Warn("Worker did not finish its request before shutdown")
		}
	case err := <-done:
		if err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}

	log.Info("Worker exited")
}

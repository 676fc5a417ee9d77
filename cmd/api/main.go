package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/manor-engine/internal/config"
	"github.com/jwebster45206/manor-engine/internal/handlers"
	"github.com/jwebster45206/manor-engine/internal/logger"
	"github.com/jwebster45206/manor-engine/internal/middleware"
	"github.com/jwebster45206/manor-engine/internal/seed"
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

	log.Info("Starting Manor Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"storage", cfg.StorageBackend,
		"async_turns", cfg.AsyncTurns)

	world, err := seed.LoadOrDefault(cfg.WorldSeed)
	if err != nil {
		log.Error("Failed to load world seed", "path", cfg.WorldSeed, "error", err)
		os.Exit(1)
	}
	initial, err := world.Compile()
	if err != nil {
		log.Error("World seed is invalid", "path", cfg.WorldSeed, "error", err)
		os.Exit(1)
	}
	log.Info("World seed loaded", "name", world.GameName(), "rooms", len(initial.Rooms), "items", len(initial.Items))

	store, err := storage.Open(cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// Initialize the model on startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	llmService, err := services.NewLLMService(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create LLM service", "error", err)
		os.Exit(1)
	}
	if err := llmService.InitModel(ctx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	deps := handlers.Deps{
		Storage:  store,
		Health:   map[string]handlers.Pinger{},
		SeedName: world.GameName(),
		Seed:     initial,
		Logger:   log,
	}

	var statusLog status.Log = status.NewMemoryLog(log)
	var publisher events.Publisher = events.Nop{}
	var queueClient *queue.Client
	if cfg.StorageBackend == "redis" {
		queueClient, err = queue.NewClient(storageCtx, cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to create Redis client", "error", err)
			os.Exit(1)
		}
		rdb := queueClient.GetRedisClient()
		statusLog = status.NewRedisLog(rdb, log)
		publisher = events.NewBroadcaster(rdb, log)
		deps.Redis = rdb
		deps.Health["redis"] = queueClient
		if cfg.AsyncTurns {
			deps.Queue = queue.NewTurnQueue(queueClient, log)
			log.Info("Turns are queued for the worker")
		}
	}

	processor := worker.NewTurnProcessor(store, llmService, statusLog, publisher, log)
	processor.SetTimeout(cfg.TurnTimeout)

	deps.Processor = processor
	deps.StatusLog = statusLog
	deps.Publisher = publisher

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, handlers.NewMux(deps)),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: turns and SSE streams run long.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if queueClient != nil {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if c, ok := llmService.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Error("Error closing LLM client", "error", err)
		}
	}

	log.Info("Server exited")
}

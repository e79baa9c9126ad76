package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hundredandten/server/internal/auth"
	"github.com/hundredandten/server/internal/config"
	"github.com/hundredandten/server/internal/handler"
	"github.com/hundredandten/server/internal/kafka"
	"github.com/hundredandten/server/internal/memstore"
	"github.com/hundredandten/server/internal/postgres"
	"github.com/hundredandten/server/internal/redis"
	"github.com/hundredandten/server/internal/service"
	"github.com/hundredandten/server/internal/websocket"
	"github.com/hundredandten/server/internal/worker"
)

// store is what the services and readiness probe need from a storage driver
type store interface {
	service.GameStore
	service.UserStore
	handler.Pinger
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}
	level.Set(cfg.Log.SlogLevel())

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	verifier, err := auth.NewVerifier(&cfg.Auth)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	var games store
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		games = memstore.New()
	default:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		postgresRepo, err := postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer postgresRepo.Close()
		logger.Info("connected to PostgreSQL")

		// Run database migrations
		if err := postgresRepo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		games = postgresRepo
	}
	pingers := []handler.Pinger{games}

	// Initialize Redis
	var summaries service.SummaryCache
	var profiles service.ProfileCache
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		cache, err := redis.NewCache(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
		summaries, profiles = cache, cache
		pingers = append(pingers, cache)
		logger.Info("connected to Redis")
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Notifications go straight to the hub unless Kafka fans them out
	var publisher service.Publisher = wsHub
	var kafkaProducer *kafka.Producer
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaProducer, kafkaConsumer = startKafka(&cfg.Kafka, wsHub, logger)
		if kafkaProducer != nil {
			publisher = kafkaProducer
		}
	}

	// Initialize services
	gameService := service.NewGameService(games, summaries, publisher, &cfg.Game, logger)
	userService := service.NewUserService(games, profiles, &cfg.Game, logger)
	lobbyService := service.NewLobbyService(games, gameService, userService, publisher, &cfg.Game, logger)

	// Initialize summary worker
	var summaryWorker *worker.SummaryWorker
	if cfg.Sync.Enabled && summaries != nil {
		summaryWorker = worker.NewSummaryWorker(gameService, &cfg.Sync, logger)
		if err := summaryWorker.Start(ctx); err != nil {
			logger.Error("failed to start summary worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(lobbyService, gameService, userService, verifier, wsHub, logger, pingers...)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	if summaryWorker != nil {
		if err := summaryWorker.Stop(); err != nil {
			logger.Error("failed to stop summary worker", "error", err)
		}
	}

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	}
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop WebSocket hub
	wsHub.Stop()

	logger.Info("server stopped")
}

// startKafka starts the notification producer and the consumer feeding hub.
// Without a running consumer the producer is closed and both are nil, so
// notifications go to the hub directly.
func startKafka(cfg *config.KafkaConfig, hub *websocket.Hub, logger *slog.Logger) (*kafka.Producer, *kafka.Consumer) {
	consumer, err := kafka.NewConsumer(cfg, hub, logger)
	if err != nil {
		logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		return nil, nil
	}
	if err := consumer.Start(); err != nil {
		logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
		return nil, nil
	}

	producer, err := kafka.NewProducer(cfg, logger)
	if err != nil {
		logger.Warn("failed to create Kafka producer, continuing without Kafka", "error", err)
		if err := consumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
		return nil, nil
	}

	logger.Info("Kafka started successfully")
	return producer, consumer
}

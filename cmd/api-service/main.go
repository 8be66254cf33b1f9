package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/taskpin/taskpin-be/internal/api/auth"
	"github.com/taskpin/taskpin-be/internal/api/handler"
	"github.com/taskpin/taskpin-be/internal/api/lifecycle"
	"github.com/taskpin/taskpin-be/internal/api/messaging"
	"github.com/taskpin/taskpin-be/internal/api/reviews"
	"github.com/taskpin/taskpin-be/internal/api/router"
	"github.com/taskpin/taskpin-be/internal/api/storage"
	"github.com/taskpin/taskpin-be/internal/config"
	"github.com/taskpin/taskpin-be/internal/hub"
	"github.com/taskpin/taskpin-be/internal/ratelimit"
	"github.com/taskpin/taskpin-be/internal/reconciler"
	"github.com/taskpin/taskpin-be/shared/ledger"
	"github.com/taskpin/taskpin-be/shared/logger"
	"github.com/taskpin/taskpin-be/shared/objectstore"
	"github.com/taskpin/taskpin-be/shared/postgresql"
	"github.com/taskpin/taskpin-be/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Ledger bridge and deliverable blob storage
	ledgerClient := ledger.NewClient(&ledger.Config{
		BaseURL:      cfg.Ledger.BaseURL,
		Timeout:      cfg.Ledger.Timeout,
		ServiceToken: cfg.Ledger.ServiceToken,
	}, appLogger)

	objects, err := objectstore.NewLocal(cfg.ObjectStore.Root)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	// Notification fan-out room
	room := hub.New(hub.Config{
		PingInterval: cfg.Hub.PingInterval,
		StaleAfter:   cfg.Hub.StaleAfter,
	}, appLogger)

	// Rate limiter; prune idle identities in the background
	quotas := make(map[ratelimit.Category]int, len(cfg.RateLimit.Quotas))
	for name, quota := range cfg.RateLimit.Quotas {
		quotas[ratelimit.Category(name)] = quota
	}
	limiter := ratelimit.New(cfg.RateLimit.Window, quotas)
	go func() {
		ticker := time.NewTicker(cfg.RateLimit.Window)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Prune()
		}
	}()

	// Storage and services
	store := storage.NewStore(dbClient.GetDB(), appLogger)
	queue := reconciler.NewPublisher(rabbitClient, appLogger)

	lifecycleService := lifecycle.NewService(store, ledgerClient, room, queue, objects, lifecycle.Config{
		MinPaymentCents:           cfg.Lifecycle.MinPaymentCents,
		CancelCompensationPercent: cfg.Lifecycle.CancelCompensationPercent,
	}, appLogger)
	messagingService := messaging.NewService(store, room, appLogger)
	reviewService := reviews.NewService(store, appLogger)

	authn := auth.NewStoreAuthenticator(store)

	// Initialize router
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:       appLogger,
		DBClient:     dbClient,
		RabbitClient: rabbitClient,
		Lifecycle:    lifecycleService,
		Messaging:    messagingService,
		Reviews:      reviewService,
		Hub:          room,
	}
	r := router.SetupRouter(handlerDeps, authn, limiter)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*slog.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

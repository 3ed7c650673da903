package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storybook-server/internal/api"
	"storybook-server/internal/config"
	"storybook-server/internal/logger"
	"storybook-server/internal/messaging"
	"storybook-server/internal/orchestrator"
	"storybook-server/internal/repository"
	"storybook-server/internal/service"
	"storybook-server/migrations"
	"storybook-server/pkg/database"
	"storybook-server/pkg/migration"
)

func main() {
	// .env is for local runs; in containers everything comes from the
	// environment and /run/secrets.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("Starting storybook generation service (worker + API)...")
	zapLogger.Info("Database DSN", zap.String("dsn", cfg.MaskedDSN()))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL + migrations
	dbPool, err := database.NewPool(rootCtx, database.Config{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, dbPool)
	if err := migrator.Up(rootCtx); err != nil {
		zapLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Redis (run locks)
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.RedisTimeout,
		ReadTimeout:  cfg.RedisTimeout,
		WriteTimeout: cfg.RedisTimeout,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(rootCtx).Err(); err != nil {
		// The lock degrades to in-process guarding, so a Redis outage is not
		// fatal at startup.
		zapLogger.Warn("Redis unavailable at startup, run locks degraded", zap.Error(err))
	}

	// RabbitMQ
	conn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		zapLogger.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
	}
	defer ch.Close()

	if err := messaging.DeclareTaskTopology(ch); err != nil {
		zapLogger.Fatal("Failed to declare task topology", zap.Error(err))
	}

	notifier, err := messaging.NewRabbitNotifier(ch, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create notifier", zap.Error(err))
	}
	taskPublisher := messaging.NewRabbitTaskPublisher(ch, zapLogger)

	// Push notifications (optional)
	var pushSender service.PushSender
	if cfg.FCMCredentialsPath != "" {
		pushSender, err = service.NewFCMPushSender(rootCtx, cfg.FCMCredentialsPath, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to initialize FCM push sender", zap.Error(err))
		}
	} else {
		zapLogger.Info("FCM credentials not configured, push notifications disabled")
		pushSender = service.NewNoopPushSender(zapLogger)
	}

	// Core services
	aiClient := service.NewAIClient(cfg, zapLogger)
	storageClient := service.NewStorageClient(cfg, zapLogger)
	profileClient := service.NewProfileClient(cfg, zapLogger)
	storyRepo := repository.NewPgStoryRepository(dbPool, zapLogger)
	runLock := orchestrator.NewRedisRunLock(redisClient, cfg.RunLockTTL, zapLogger)

	orch := orchestrator.New(
		storyRepo,
		aiClient,
		storageClient,
		profileClient,
		notifier,
		pushSender,
		runLock,
		orchestrator.Config{
			PageCount:      cfg.PageCount,
			InterPageDelay: cfg.InterPageDelay,
			JPEGQuality:    cfg.JPEGQuality,
		},
		zapLogger,
	)

	// Task consumer
	consumer := messaging.NewTaskConsumer(conn, orch, zapLogger)
	if err := consumer.Start(rootCtx); err != nil {
		zapLogger.Fatal("Failed to start task consumer", zap.Error(err))
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		zapLogger.Info("Metrics server listening", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// API server
	handler := api.NewHandler(taskPublisher, storyRepo, aiClient, zapLogger)
	router := api.NewRouter(handler, cfg.JWTSecret, zapLogger)
	apiServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}
	go func() {
		zapLogger.Info("API server listening", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("API server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zapLogger.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Warn("API server shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Warn("Metrics server shutdown error", zap.Error(err))
	}
	if err := consumer.Stop(); err != nil {
		zapLogger.Warn("Task consumer stop error", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
	os.Exit(0)
}

// connectRabbitMQ dials the broker with a few retries; the broker container
// often comes up seconds after the worker.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("Connected to RabbitMQ")
			return conn, nil
		}
		logger.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(5 * time.Second)
	}
	return nil, err
}

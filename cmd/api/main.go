package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/order-ledger/internal/api"
	"github.com/example/order-ledger/internal/auth"
	"github.com/example/order-ledger/internal/domain/order"
	"github.com/example/order-ledger/internal/email"
	"github.com/example/order-ledger/internal/idempotency"
	"github.com/example/order-ledger/internal/kafka"
	"github.com/example/order-ledger/internal/notification"
	"github.com/example/order-ledger/internal/service"
	"github.com/example/order-ledger/internal/store"
)

func main() {
	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	addr := getEnv("ADDR", ":8080")
	databaseURL := os.Getenv("DATABASE_URL")
	redisAddr := os.Getenv("REDIS_ADDR")
	kafkaBrokersStr := os.Getenv("KAFKA_BROKERS")
	kafkaTopic := getEnv("KAFKA_TOPIC", "order-events")

	ownerID := getEnv("OWNER_ID", "owner")
	ownerToken := os.Getenv("OWNER_TOKEN")
	ownerTokenHash := os.Getenv("OWNER_TOKEN_HASH")
	jwtSecret := os.Getenv("JWT_SECRET")
	if ownerToken == "" && ownerTokenHash == "" && jwtSecret == "" {
		logger.Fatal("at least one of OWNER_TOKEN, OWNER_TOKEN_HASH, JWT_SECRET is required")
	}
	if jwtSecret != "" && len(jwtSecret) < 32 {
		logger.Fatal("JWT_SECRET must be at least 32 characters long")
	}

	// Order store: Postgres when configured, in-memory otherwise.
	var orderStore store.OrderStore
	if databaseURL != "" {
		db, err := store.ConnectPostgres(databaseURL)
		if err != nil {
			logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer db.Close()

		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("failed to ensure schema", zap.Error(err))
		}
		orderStore = pg
		logger.Info("using PostgreSQL order store")
	} else {
		orderStore = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory order store")
	}

	// Notification transport: Kafka fan-out when brokers are configured,
	// direct SMTP otherwise. Creation treats both as fire-and-forget.
	var producer *kafka.Producer
	if kafkaBrokersStr != "" {
		producer = kafka.NewProducer(strings.Split(kafkaBrokersStr, ","), kafkaTopic)
		defer producer.Close()
		logger.Info("publishing order events to Kafka", zap.String("topic", kafkaTopic))
	}
	var emailSvc *email.Service
	if host := os.Getenv("SMTP_HOST"); host != "" {
		emailSvc = email.NewService(
			host,
			getEnv("SMTP_PORT", "587"),
			getEnv("SMTP_FROM", "orders@example.com"),
		)
	}
	dispatcher := notification.NewDispatcher(producer, emailSvc)

	factory := order.NewFactory()
	creationOpts := []service.CreationOption{service.WithNotifier(dispatcher)}
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer client.Close()
		creationOpts = append(creationOpts,
			service.WithReservationCache(idempotency.NewReservation(client)))
		logger.Info("using Redis idempotency reservations", zap.String("addr", redisAddr))
	}

	creationSvc := service.NewCreationService(orderStore, factory, logger, creationOpts...)
	mutationSvc := service.NewMutationService(orderStore, logger)

	gateOpts := []auth.GateOption{}
	if ownerToken != "" {
		gateOpts = append(gateOpts, auth.WithStaticToken(ownerToken))
	}
	if ownerTokenHash != "" {
		gateOpts = append(gateOpts, auth.WithTokenHash(ownerTokenHash))
	}
	if jwtSecret != "" {
		gateOpts = append(gateOpts,
			auth.WithTokenService(auth.NewTokenService(jwtSecret, 15*time.Minute)))
	}
	gate := auth.NewGate(ownerID, gateOpts...)

	handlers := api.NewHandlers(creationSvc, mutationSvc, logger)
	router := api.NewRouter(handlers, gate, logger)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
}

// newLogger builds a production JSON logger honoring LOG_LEVEL.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))); level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
	}
	return cfg.Build()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

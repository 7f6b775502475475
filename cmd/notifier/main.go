package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/order-ledger/internal/email"
	"github.com/example/order-ledger/internal/kafka"
	"github.com/example/order-ledger/internal/notification"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "order-events")

	emailSvc := email.NewService(
		getEnv("SMTP_HOST", "localhost"),
		getEnv("SMTP_PORT", "1025"),
		getEnv("SMTP_FROM", "orders@example.com"),
	)

	handler := notification.NewHandler(emailSvc, logger)

	consumer := kafka.NewConsumer(kafkaBrokers, kafkaTopic, "order-notifier", logger)
	defer consumer.Close()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("notifier started",
		zap.Strings("brokers", kafkaBrokers),
		zap.String("topic", kafkaTopic),
	)
	if err := consumer.Consume(ctx, handler.HandleMessage); err != nil && ctx.Err() == nil {
		logger.Fatal("consumer error", zap.Error(err))
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/infrastructure/email"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/internal/service"
	transportkafka "github.com/abhirajkale-hub/plaque-e-com-sub001/internal/transport/kafka"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/config"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/db"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/mylogger"
	"github.com/abhirajkale-hub/plaque-e-com-sub001/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	logger, err := config.NewLogger(config.LoggerConfig{
		Level:   cfg.LogLevel,
		Env:     cfg.Env,
		Service: "notifier",
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, utils.TracerConfig{
		ServiceName: "mytradeaward-notifier",
		Endpoint:    cfg.Tracing.Endpoint,
		Env:         cfg.Env,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres.URL, db.Options{
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
		PingAttempts:    cfg.Postgres.PingAttempts,
	})
	if err != nil {
		logger.Fatal("failed to create pool", zap.Error(err))
	}
	defer pool.Close()

	sender := email.NewSMTPSender(email.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		StoreURL: cfg.SMTP.StoreURL,
	}, logger)

	notifier := service.NewNotificationService(sender, service.PoolOnce(pool, logger), logger)
	consumer := transportkafka.NewConsumer(notifier, logger)

	mylogger.Info(ctx, logger, "Notifier started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.OrderTopic),
		zap.String("group", cfg.Kafka.ConsumerGroup),
	)

	if err := consumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.OrderTopic); err != nil && !errors.Is(err, context.Canceled) {
		mylogger.Error(ctx, logger, "Consumer stopped with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	} else {
		mylogger.Info(shutdownCtx, logger, "Notifier stopped")
	}
}

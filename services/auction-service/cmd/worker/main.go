package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/floroz/motorbid/pkg/config"
	pkgdb "github.com/floroz/motorbid/pkg/database"
	pkgevents "github.com/floroz/motorbid/pkg/events"
	"github.com/floroz/motorbid/services/auction-service/internal/adapters/database"
	"github.com/floroz/motorbid/services/auction-service/internal/adapters/events"
	"github.com/floroz/motorbid/services/auction-service/internal/domain/auctions"
	"github.com/floroz/motorbid/services/auction-service/migrations"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down auction worker...")
		cancel()
	}()

	// 1. Initialize Postgres Connection Pool
	dbURL, err := config.MustString("AUCTION_DB_URL")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	pool, err := pkgdb.Connect(ctx, dbURL)
	if err != nil {
		logger.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Postgres Connected")

	if err := pkgdb.Migrate(ctx, pool, migrations.FS); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Dependencies
	txManager := pkgdb.NewPostgresTransactionManager(pool, 3*time.Second)
	auctionRepo := database.NewPostgresAuctionRepository(pool)
	// The worker never appends to the outbox
	auctionService := auctions.NewService(txManager, auctionRepo, pkgevents.NewPostgresOutboxRepository(), pkgevents.NopNotifier{}, logger)

	// 3. Connect to RabbitMQ
	rabbitURL, err := config.MustString("RABBITMQ_URL")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	broker := pkgevents.NewBroker(rabbitURL, logger)
	defer broker.Close()

	// 4. Start Consumer
	handler := events.NewNotificationHandler(auctionService, logger)
	consumer := pkgevents.NewConsumer(broker, pkgevents.ConsumerConfig{
		Queue:          events.QueueName,
		RoutingKeys:    events.RoutingKeys,
		ReconnectDelay: 3 * time.Second,
	}, handler.Handle, logger)

	if err := consumer.Declare(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("Auction worker stopped before the queue was declared")
			return
		}
		logger.Error("Failed to declare queue", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting auction notification consumer...")
	if err := consumer.Run(ctx); err != nil {
		logger.Error("Consumer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Auction worker stopped")
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/floroz/motorbid/pkg/config"
	pkgdb "github.com/floroz/motorbid/pkg/database"
	pkgevents "github.com/floroz/motorbid/pkg/events"
	"github.com/floroz/motorbid/services/bid-service/internal/adapters/database"
	"github.com/floroz/motorbid/services/bid-service/internal/adapters/events"
	"github.com/floroz/motorbid/services/bid-service/internal/domain/bids"
	"github.com/floroz/motorbid/services/bid-service/migrations"
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
		logger.Info("Shutting down bid worker...")
		cancel()
	}()

	// 1. Initialize Postgres Connection Pool
	dbURL, err := config.MustString("BID_DB_URL")
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

	// 2. Connect to RabbitMQ
	rabbitURL, err := config.MustString("RABBITMQ_URL")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	broker := pkgevents.NewBroker(rabbitURL, logger)
	defer broker.Close()

	// 3. Initialize Dependencies
	txManager := pkgdb.NewPostgresTransactionManager(pool, config.Duration("LOCK_TIMEOUT", 3*time.Second))
	bidRepo := database.NewPostgresBidRepository(pool)
	snapshotRepo := database.NewPostgresSnapshotRepository(pool)
	outboxRepo := pkgevents.NewPostgresOutboxRepository()

	// The advisory lock keeps this relay and the API's from draining the table at once
	outboxRelay := pkgevents.NewOutboxRelay(
		outboxRepo,
		broker,
		txManager,
		config.Int("OUTBOX_BATCH_SIZE", 50),
		config.Duration("OUTBOX_INTERVAL", 10*time.Second),
		pkgevents.ExchangeName,
		logger.With("component", "outbox_relay"),
	)

	finalizer := bids.NewFinalizer(
		txManager,
		bidRepo,
		snapshotRepo,
		outboxRepo,
		outboxRelay,
		config.Duration("SWEEPER_INTERVAL", 5*time.Second),
		logger.With("component", "finalizer"),
	)

	// Snapshots only; the worker never places bids
	biddingService := bids.NewBiddingService(txManager, bidRepo, snapshotRepo, nil, outboxRepo, pkgevents.NopNotifier{}, logger)
	handler := events.NewNotificationHandler(biddingService, logger)
	consumer := pkgevents.NewConsumer(broker, pkgevents.ConsumerConfig{
		Queue:          events.QueueName,
		RoutingKeys:    events.RoutingKeys,
		ReconnectDelay: 3 * time.Second,
	}, handler.Handle, logger)

	if err := consumer.Declare(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("Bid worker stopped before the queue was declared")
			return
		}
		logger.Error("Failed to declare queue", "error", err)
		os.Exit(1)
	}

	// 4. Run everything until shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return outboxRelay.Run(gctx)
	})
	g.Go(func() error {
		return finalizer.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting bid notification consumer...")
		return consumer.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Bid worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Bid worker stopped")
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/floroz/motorbid/pkg/config"
	pkgevents "github.com/floroz/motorbid/pkg/events"
	"github.com/floroz/motorbid/pkg/rpc"
	"github.com/floroz/motorbid/services/search-service/internal/adapters/auctionclient"
	"github.com/floroz/motorbid/services/search-service/internal/adapters/events"
	redisstore "github.com/floroz/motorbid/services/search-service/internal/adapters/redis"
	"github.com/floroz/motorbid/services/search-service/internal/domain/search"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Connect to Redis
	redisURL, err := config.MustString("REDIS_URL")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error("Invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	// 2. RabbitMQ is dialed lazily by the consumer
	rabbitURL, err := config.MustString("RABBITMQ_URL")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	broker := pkgevents.NewBroker(rabbitURL, logger)
	defer broker.Close()

	auctionServiceURL, err := config.MustString("AUCTION_SERVICE_URL")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Dependencies
	store := redisstore.NewItemStore(rdb)
	service := search.NewService(store, logger)
	lister := auctionclient.NewLister(
		rpc.NewAuctionServiceClient(http.DefaultClient, auctionServiceURL),
		config.Duration("CATCHUP_TIMEOUT", 30*time.Second),
	)
	synchronizer := search.NewSynchronizer(
		service,
		store,
		lister,
		config.Duration("CATCHUP_RETRY_INTERVAL", 3*time.Second),
		logger.With("component", "synchronizer"),
	)

	handler := events.NewNotificationHandler(service, logger)
	consumer := pkgevents.NewConsumer(broker, pkgevents.ConsumerConfig{
		Queue:          events.QueueName,
		RoutingKeys:    events.RoutingKeys,
		ReconnectDelay: 3 * time.Second,
	}, handler.Handle, logger)

	// 4. Declare the queue first so nothing published during catch-up is lost
	if err := consumer.Declare(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("Search worker stopped before the queue was declared")
			return
		}
		logger.Error("Failed to declare queue", "error", err)
		os.Exit(1)
	}

	// 5. Catch up with the auction service before following notifications
	synced, err := synchronizer.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("Search worker stopped during catch-up")
			return
		}
		logger.Error("Catch-up failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Read model synchronized", "auctions", synced)

	logger.Info("Starting search notification consumer...")
	if err := consumer.Run(ctx); err != nil {
		logger.Error("Search worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Search worker stopped")
}

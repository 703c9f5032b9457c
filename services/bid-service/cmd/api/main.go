package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/motorbid/pkg/auth"
	"github.com/floroz/motorbid/pkg/config"
	pkgdb "github.com/floroz/motorbid/pkg/database"
	pkgevents "github.com/floroz/motorbid/pkg/events"
	"github.com/floroz/motorbid/pkg/rpc"
	"github.com/floroz/motorbid/services/bid-service/internal/adapters/api"
	"github.com/floroz/motorbid/services/bid-service/internal/adapters/auctionclient"
	"github.com/floroz/motorbid/services/bid-service/internal/adapters/database"
	"github.com/floroz/motorbid/services/bid-service/internal/domain/bids"
	"github.com/floroz/motorbid/services/bid-service/migrations"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	// 2. RabbitMQ is dialed lazily by the relay
	rabbitURL, err := config.MustString("RABBITMQ_URL")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	broker := pkgevents.NewBroker(rabbitURL, logger)
	defer broker.Close()

	// 3. Auction service, used when a bid arrives before AuctionCreated
	auctionServiceURL, err := config.MustString("AUCTION_SERVICE_URL")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	fetcher := auctionclient.NewFetcher(
		rpc.NewAuctionServiceClient(http.DefaultClient, auctionServiceURL),
		config.Duration("READ_THROUGH_TIMEOUT", 2*time.Second),
	)

	// 4. Token validation
	publicKeyPath, err := config.MustString("JWT_PUBLIC_KEY_PATH")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	signer, err := auth.NewSignerFromPublicKeyFile(publicKeyPath, config.String("JWT_ISSUER", ""))
	if err != nil {
		logger.Error("Failed to load token public key", "error", err)
		os.Exit(1)
	}

	// 5. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, config.Duration("LOCK_TIMEOUT", 3*time.Second))
	bidRepo := database.NewPostgresBidRepository(pool)
	snapshotRepo := database.NewPostgresSnapshotRepository(pool)
	outboxRepo := pkgevents.NewPostgresOutboxRepository()

	outboxRelay := pkgevents.NewOutboxRelay(
		outboxRepo,
		broker,
		txManager,
		config.Int("OUTBOX_BATCH_SIZE", 50),
		config.Duration("OUTBOX_INTERVAL", 10*time.Second),
		pkgevents.ExchangeName,
		logger.With("component", "outbox_relay"),
	)

	// 6. Initialize Service (Domain Layer)
	biddingService := bids.NewBiddingService(txManager, bidRepo, snapshotRepo, fetcher, outboxRepo, outboxRelay, logger)

	// 7. Initialize API Handler (ConnectRPC)
	path, handler := rpc.NewBidServiceHandler(
		api.NewBidServiceHandler(biddingService),
		connect.WithInterceptors(auth.NewAuthInterceptor(signer, api.PublicProcedures...)),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	addr := config.String("HTTP_ADDR", ":8082")

	// Use h2c for HTTP/2 without TLS (common for internal services / local dev)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return outboxRelay.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Starting Bid Service API", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Bid Service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Bid Service stopped")
}

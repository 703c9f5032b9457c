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

	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/motorbid/pkg/config"
	"github.com/floroz/motorbid/pkg/rpc"
	"github.com/floroz/motorbid/services/search-service/internal/adapters/api"
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
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	logger.Info("Redis Connected")

	// 2. Initialize Service (Domain Layer)
	service := search.NewService(redisstore.NewItemStore(rdb), logger)

	// 3. Initialize API Handler (ConnectRPC). Search is public.
	path, handler := rpc.NewSearchServiceHandler(api.NewSearchServiceHandler(service))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	addr := config.String("HTTP_ADDR", ":8083")

	srv := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Search Service API", "addr", addr)
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
		logger.Error("Search Service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Search Service stopped")
}

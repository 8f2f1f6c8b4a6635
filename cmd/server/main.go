package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkstocker/portfolio-service/internal/api"
	"github.com/mkstocker/portfolio-service/internal/cache"
	"github.com/mkstocker/portfolio-service/internal/config"
	"github.com/mkstocker/portfolio-service/internal/database"
	"github.com/mkstocker/portfolio-service/internal/kafka"
	"github.com/mkstocker/portfolio-service/internal/pricefeed"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", slog.String("err", err.Error()))
		os.Exit(1)
	}
	slog.Info("database migrated")

	prices := newPriceSource(cfg)

	handler := api.NewHandler(db, prices, newProducer(cfg), cfg.APIToken)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      api.SetupRoutes(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("server listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", slog.String("err", err.Error()))
	}
}

// newPriceSource picks the mock or remote quote source and wraps it with
// the Redis cache when Redis is reachable.
func newPriceSource(cfg *config.Config) pricefeed.Source {
	var source pricefeed.Source
	if cfg.PriceFeed.UseMockData || cfg.PriceFeed.QuoteAPIURL == "" {
		slog.Info("using mock price data")
		source = pricefeed.NewMockSource()
	} else {
		source = pricefeed.NewRemoteSource(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Warn("redis unavailable, quote caching disabled", slog.String("err", err.Error()))
		return source
	}
	slog.Info("redis connected")

	return cache.NewCachedSource(source, cache.NewQuoteCache(client, cfg.Redis.QuoteTTL))
}

// newProducer returns a Kafka producer, or nil when no brokers are
// configured.
func newProducer(cfg *config.Config) api.EventPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		slog.Info("kafka brokers not configured, event publishing disabled")
		return nil
	}
	return kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}

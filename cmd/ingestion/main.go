// Command ingestion starts the post ingestion HTTP service.
//
// The service accepts social-media posts via POST /api/v1/posts (and
// POST /api/v1/posts/bulk), validates them, persists them to PostgreSQL
// idempotently on (platform, external_id) and publishes new posts to the
// post-ingest topic for the scoring worker.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		metrics.Serve(ctx, cfg.Metrics.Port)
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	posts := store.New(db)
	if err := posts.EnsureSchema(ctx); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PostIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", producer.Topic())

	pub := publisher.New(posts, producer, m)
	h := handler.New(pub, cfg.Analyzer.MaxBatchSize)

	checker := health.NewChecker("ingestion")
	checker.Register("postgres", health.Ping(db.Ping, health.StatusDown))
	checker.Register("kafka", health.Ping(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}, health.StatusDegraded))

	protect := func(next http.Handler) http.Handler { return next }
	if cfg.Auth.Enabled {
		protect = apikey.Middleware(apikey.NewValidator(db, cfg.Auth.CacheTTL), apikey.ScopeIngest)
		slog.Info("api key auth enabled", "cache_ttl", cfg.Auth.CacheTTL)
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/posts", protect(http.HandlerFunc(h.Ingest)))
	mux.Handle("POST /api/v1/posts/bulk", protect(http.HandlerFunc(h.IngestBulk)))
	checker.Mount(mux)

	limiter := ratelimit.New(ctx, cfg.RateLimit.RequestsPerMinute, time.Minute)
	chain := middleware.Chain(mux,
		middleware.Recover,
		middleware.RequestID,
		middleware.Tracing(cfg.Tracing.Rate()),
		middleware.Metrics(m),
		middleware.RateLimit(limiter),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}

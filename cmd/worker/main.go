// Command worker scores ingested posts.
//
// It consumes the post-ingest topic, analyses each post (brand sentiment,
// competitor sentiment, themes), stores the result in PostgreSQL and
// publishes post-scored events in batches. Stored posts are re-scored on
// the configured cron schedule, or once with -rescore.
//
// Usage:
//
//	go run ./cmd/worker [-config configs/development.yaml] [-rescore]
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

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/worker"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	rescoreOnce := flag.Bool("rescore", false, "re-score all stored posts once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scoring worker", "workers", cfg.Analyzer.Workers, "rescore_once", *rescoreOnce)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled && !*rescoreOnce {
		metrics.Serve(ctx, cfg.Metrics.Port)
	}

	engine, err := pipeline.Build(cfg.Analyzer, cfg.Entities, m)
	if err != nil {
		slog.Error("failed to build scoring engine", "error", err)
		os.Exit(1)
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
	if err := posts.SyncThemes(ctx, engine.Classifier().Descriptions()); err != nil {
		slog.Error("failed to sync themes", "error", err)
		os.Exit(1)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PostScored)
	defer producer.Close()
	events := collector.NewOutbox(producer, 100, 2*time.Second)
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	events.Start(collectorCtx)

	processor := worker.NewProcessor(engine, posts, events, cfg.Analyzer.ItemTimeout, m)
	rescorer := worker.NewRescorer(posts, processor, cfg.Rescore.PageSize, m)

	if *rescoreOnce {
		report, err := rescorer.Run(ctx)
		stopCollector()
		events.Close()
		if err != nil {
			slog.Error("rescore failed", "error", err, "posts", report.Posts)
			os.Exit(1)
		}
		slog.Info("rescore finished", "posts", report.Posts, "failed", report.Failed, "duration", report.Duration)
		return
	}

	if cfg.Rescore.Enabled {
		if err := rescorer.Schedule(ctx, cfg.Rescore.Schedule); err != nil {
			slog.Error("invalid rescore schedule", "error", err)
			os.Exit(1)
		}
	}

	checker := health.NewChecker("worker")
	checker.Register("postgres", health.Ping(db.Ping, health.StatusDown))
	checker.Register("kafka", health.Ping(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}, health.StatusDown))
	mux := http.NewServeMux()
	checker.Mount(mux)
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PostIngest, cfg.Kafka.ConsumerGroup, worker.HandleMessage(processor))
	slog.Info("scoring worker consuming", "topic", cfg.Kafka.Topics.PostIngest, "group", cfg.Kafka.ConsumerGroup)
	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}
	stopCollector()
	events.Close()
	slog.Info("scoring worker stopped")
}

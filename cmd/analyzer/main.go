// Command analyzer serves the scoring API and the dashboard queries.
//
// It scores posts on demand (brand and competitor sentiment, themes), caches
// full analyses in Redis, answers dashboard aggregates from PostgreSQL and
// keeps live scoring stats by consuming the post-scored topic.
//
// Usage:
//
//	go run ./cmd/analyzer [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analyzer/cache"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analyzer/handler"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/redis"
)

const snapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analyzer service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		metrics.Serve(ctx, cfg.Metrics.Port)
	}

	engine, err := pipeline.Build(cfg.Analyzer, cfg.Entities, m)
	if err != nil {
		slog.Error("failed to build scoring engine", "error", err)
		os.Exit(1)
	}
	slog.Info("scoring engine ready",
		"brand", engine.Registry().Brand(),
		"competitors", len(engine.Registry().Competitors()),
		"competitor_mode", engine.CompetitorMode(),
		"lexicon_version", engine.LexiconVersion(),
	)

	checker := health.NewChecker("analyzer")
	checker.SetInfo("lexicon_version", engine.LexiconVersion())
	checker.SetInfo("competitor_mode", strconv.FormatBool(engine.CompetitorMode()))

	var repo handler.Repository
	var snapshots *aggregator.Store
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, dashboard endpoints disabled", "error", err)
	} else {
		defer db.Close()
		repo = store.New(db)
		snapshots = aggregator.NewStore(db)
		checker.Register("postgres", health.Ping(db.Ping, health.StatusDegraded))
	}

	var analysisCache *cache.Cache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, analysis caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		analysisCache = cache.New(redisClient, engine.LexiconVersion(), cfg.Redis.CacheTTL, m)
		checker.Register("redis", health.Ping(redisClient.Ping, health.StatusDegraded))
		slog.Info("analysis cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	agg := analytics.NewAggregator()
	if snapshots != nil {
		if err := snapshots.Restore(ctx, agg); err != nil {
			slog.Warn("failed to restore stats snapshot", "error", err)
		}
		go snapshots.Run(ctx, agg, snapshotInterval)
	}
	statsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PostScored, cfg.Kafka.StatsGroup, analytics.HandleEvent(agg))
	go func() {
		if err := statsConsumer.Start(ctx); err != nil {
			slog.Error("stats consumer error", "error", err)
		}
	}()
	checker.Register("kafka", health.Ping(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	}, health.StatusDegraded))

	h := handler.New(engine, analysisCache, repo, cfg.Analyzer.MaxBatchSize)
	if cfg.Auth.Enabled {
		if db == nil {
			slog.Warn("auth enabled without postgres, admin routes disabled")
			h.ProtectAdmin(func(http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, `{"error":"api key store unavailable"}`, http.StatusServiceUnavailable)
				})
			})
		} else {
			h.ProtectAdmin(apikey.Middleware(apikey.NewValidator(db, cfg.Auth.CacheTTL), apikey.ScopeAdmin))
		}
	}
	var history analytics.HistoryReader
	if snapshots != nil {
		history = snapshots
	}
	statsHandler := analytics.NewHandler(agg, history)

	mux := http.NewServeMux()
	h.Register(mux)
	statsHandler.Register(mux)
	checker.Mount(mux)

	limiter := ratelimit.New(ctx, cfg.RateLimit.RequestsPerMinute, time.Minute)
	chain := middleware.Chain(mux,
		middleware.Recover,
		middleware.RequestID,
		middleware.Tracing(cfg.Tracing.Rate()),
		middleware.Metrics(m),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)),
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

	slog.Info("analyzer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("analyzer service stopped")
}

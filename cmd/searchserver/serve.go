package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/searchserver"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/redis"
)

const (
	analyticsBufferSize  = 10000
	rateLimitCleanupTick = 5 * time.Minute
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, seedPath)
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "JSON document records indexed at startup")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, seedPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"mode", cfg.Search.Mode,
		"workers", cfg.Search.Workers,
	)

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	server, err := searchserver.New(cfg.Search, searchserver.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("creating search server: %w", err)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents", server.DocumentCount()),
		}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	searcher := cache.NewSearcher(server, queryCache)

	agg := analytics.NewAggregator(cfg.Analytics.TopQueries)
	trackerOpts := []analytics.TrackerOption{
		analytics.WithAggregator(agg),
		analytics.WithMetrics(m),
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analyticsBufferSize, 0, 0)
		collector.Start(ctx)
		defer collector.Close()
		trackerOpts = append(trackerOpts, analytics.WithCollector(collector))
		slog.Info("analytics collector enabled", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}
	tracker := analytics.NewTracker(searcher, cfg.Search.RequestWindow, trackerOpts...)
	server.OnChange(recordChanges(agg))

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			checker.Register("postgres", health.PingCheck(db.Ping, false))
			store := aggregator.NewStore(db)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Warn("analytics snapshot schema unavailable", "error", err)
			} else {
				saved := store.StartPeriodicSave(ctx, func() analytics.AggregatedStats {
					return analytics.Snapshot(agg, tracker)
				}, cfg.Analytics.SnapshotInterval)
				defer func() {
					cancel()
					<-saved
				}()
			}
		}
	}

	if seedPath != "" {
		n, err := loadDocuments(ctx, server, seedPath)
		if err != nil {
			return fmt.Errorf("seeding index: %w", err)
		}
		slog.Info("index seeded", "documents", n, "path", seedPath)
	}

	var ingestH *ingesthandler.Handler
	if cfg.Kafka.Enabled {
		ingestProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		defer ingestProducer.Close()
		ingestH = ingesthandler.New(publisher.New(ingestProducer))

		ingest := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, consumer.HandleMessage(server, m)))
		go func() {
			if err := ingest.Start(ctx); err != nil {
				slog.Error("index consumer stopped", "error", err)
			}
		}()
		slog.Info("index consumer enabled", "topic", cfg.Kafka.Topics.DocumentIngest)
	}

	h := handler.New(server, tracker, queryCache, cfg.Search.MaxResults)
	analyticsH := analytics.NewHandler(agg, tracker)

	mux := http.NewServeMux()
	h.Register(mux)
	if ingestH != nil {
		ingestH.Register(mux)
	}
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if cfg.Tracing.Enabled {
		chain = middleware.Tracing(chain)
	}
	if cfg.Server.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
		limiter.StartCleanup(ctx, rateLimitCleanupTick)
		chain = middleware.RateLimit(limiter)(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("search service listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Shutdown waits for in-flight requests, so nothing tracks into the
	// collector once the deferred closes run.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("search service stopped")
	return nil
}

// recordChanges feeds committed index mutations into the aggregator.
func recordChanges(agg *analytics.Aggregator) searchserver.ChangeListener {
	return func(_ context.Context, change searchserver.Change) {
		eventType := analytics.EventIndexDocument
		if change.Op == searchserver.ChangeRemove {
			eventType = analytics.EventRemoveDocument
		}
		now := time.Now().UTC()
		for _, id := range change.IDs {
			agg.RecordDocument(analytics.DocumentEvent{Type: eventType, DocumentID: id, Timestamp: now})
		}
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/bm25comp/pkg/redis"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		indexFlag string
		port      int
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search queries over HTTP",
		Long: `Serve loads an index file and answers GET /search?q=...&limit=N.
It also exposes /stats, /analytics, /health/live, /health/ready and /metrics.

When kafka.brokers is set, every search is also published to the
kafka.topics.searchEvents topic. server.rateLimit caps /search requests per
client address within server.rateLimitWindow.

The index is reloaded from disk on SIGHUP and, with --watch, whenever an
index-complete event for a different checksum arrives on Kafka.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if watch && len(cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("--watch needs kafka.brokers to be configured")
			}
			ctx := cmd.Context()

			svc, err := newService(ctx, cfg, a.indexPath(indexFlag))
			if err != nil {
				return err
			}
			defer svc.close()

			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
			if err != nil {
				return fmt.Errorf("listening on port %d: %w", cfg.Server.Port, err)
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return svc.serve(ctx, ln) })
			g.Go(func() error { return svc.reloadOnHangup(ctx) })
			if watch {
				consumer := kafka.NewConsumer(withGroupSuffix(cfg.Kafka, "-serve"), cfg.Kafka.Topics.IndexComplete)
				g.Go(func() error { return svc.watch(ctx, consumer) })
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&indexFlag, "index", "i", "", "Index file (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload on index-complete events from Kafka")

	return cmd
}

func withGroupSuffix(cfg config.KafkaConfig, suffix string) config.KafkaConfig {
	cfg.ConsumerGroup += suffix
	return cfg
}

// service is a running search service around one index file.
type service struct {
	cfg     *config.Config
	path    string
	reader  *searcher.Reader
	cache   *cache.QueryCache
	redis   *pkgredis.Client
	metrics *metrics.Metrics
	handler http.Handler
	logger  *slog.Logger

	analytics *analytics.Aggregator
	collector *analytics.Collector
	producer  *kafka.Producer
	limiter   *ratelimit.Limiter
}

func newService(ctx context.Context, cfg *config.Config, path string) (*service, error) {
	s := &service{
		cfg:     cfg,
		path:    path,
		reader:  searcher.NewReader(),
		metrics: metrics.New(nil),
		logger:  slog.Default().With("component", "search-service"),
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}

	switch cfg.Cache.Backend {
	case "lru":
		s.cache = cache.New(cache.NewLRU(cfg.Cache.LRUSize, cfg.Cache.TTL), cfg.Cache.TTL, s.metrics.CacheObserver())
		s.logger.Info("search cache enabled", "backend", "lru", "size", cfg.Cache.LRUSize, "ttl", cfg.Cache.TTL)
	case "redis":
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			s.logger.Warn("redis unavailable, search caching disabled", "error", err)
			break
		}
		s.redis = client
		s.cache = cache.New(client, cfg.Cache.TTL, s.metrics.CacheObserver())
		s.logger.Info("search cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Cache.TTL)
	}

	s.analytics = analytics.NewAggregator()
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topics.SearchEvents != "" {
		s.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		s.collector = analytics.NewCollector(s.producer, 0, 0, 0)
		s.collector.Start(context.WithoutCancel(ctx))
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateLimitWindow)
		s.logger.Info("search rate limit enabled", "limit", cfg.Server.RateLimit, "window", cfg.Server.RateLimitWindow)
	}

	s.handler = s.routes()
	return s, nil
}

func (s *service) routes() http.Handler {
	var recorder analytics.Recorder = s.analytics
	if s.collector != nil {
		recorder = analytics.Multi(s.analytics, s.collector)
	}
	h := handler.New(s.reader, s.cache, s.metrics, s.cfg.Search.DefaultLimit, s.cfg.Search.MaxResults).
		WithRecorder(recorder)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats, err := s.reader.Stats()
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents", stats.NumDocuments),
		}
	})
	if s.cfg.Cache.Backend == "redis" {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if s.redis == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "not connected"}
			}
			return health.FromError(s.redis.Ping, true)(ctx)
		})
	}

	mux := http.NewServeMux()
	h.Routes(mux)
	analytics.NewHandler(s.analytics).Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", s.metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(s.cfg.Search.Timeout)(chain)
	if s.limiter != nil {
		chain = middleware.RateLimit(s.limiter, "/search")(chain)
	}
	chain = middleware.Metrics(s.metrics,
		"/search", "/stats", "/cache/stats", "/cache/invalidate", "/analytics", "/analytics/reset",
		"/health/live", "/health/ready", "/metrics",
	)(chain)
	chain = middleware.RequestID(chain)
	return chain
}

// reload loads the index file again. On failure the current index keeps
// serving.
func (s *service) reload(ctx context.Context) error {
	if err := s.reader.Load(s.path); err != nil {
		s.metrics.IndexLoadsTotal.WithLabelValues("error").Inc()
		return err
	}
	s.metrics.IndexLoadsTotal.WithLabelValues("success").Inc()
	stats, _ := s.reader.Stats()
	s.metrics.IndexDocuments.Set(float64(stats.NumDocuments))
	s.metrics.IndexTerms.Set(float64(stats.NumUniqueTerms))
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	return nil
}

func (s *service) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("search service listening", "addr", ln.Addr().String(), "index", s.path)
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("search service stopped")
	return nil
}

func (s *service) reloadOnHangup(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			s.logger.Info("reloading index", "trigger", "SIGHUP")
			if err := s.reload(ctx); err != nil {
				s.logger.Error("index reload failed, keeping current index", "error", err)
			}
		}
	}
}

// watch reloads the index whenever an index-complete event announces a
// checksum other than the one being served.
func (s *service) watch(ctx context.Context, f source.Fetcher) error {
	defer f.Close()
	for {
		msg, err := f.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watching index-complete events: %w", err)
		}
		event, err := kafka.DecodeJSON[ingestion.IndexCompleteEvent](msg.Value)
		if err != nil {
			s.logger.Warn("skipping undecodable index-complete event", "offset", msg.Offset, "error", err)
		} else if current, _ := s.reader.Checksum(); event.Checksum != current {
			s.logger.Info("reloading index", "trigger", "index-complete", "checksum", event.Checksum, "built_at", event.BuiltAt)
			if err := s.reload(ctx); err != nil {
				s.logger.Error("index reload failed, keeping current index", "error", err)
			}
		}
		commitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = f.Commit(commitCtx, msg)
		cancel()
		if err != nil {
			s.logger.Warn("failed to commit index-complete event", "offset", msg.Offset, "error", err)
		}
	}
}

func (s *service) close() {
	if s.collector != nil {
		s.collector.Close()
		s.producer.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
}

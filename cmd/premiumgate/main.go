// Command premiumgate serves the Stripe webhook and checkout endpoints that
// upgrade users to premium.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mihaimyh/premiumgate/pkg/billing"
	prommetrics "github.com/mihaimyh/premiumgate/pkg/billing/metrics/prometheus"
	stripeprovider "github.com/mihaimyh/premiumgate/pkg/billing/stripe"
	"github.com/mihaimyh/premiumgate/pkg/config"
	"github.com/mihaimyh/premiumgate/pkg/premium"
	zerologadapter "github.com/mihaimyh/premiumgate/pkg/premium/logger/zerolog"
	"github.com/mihaimyh/premiumgate/pkg/ratelimit"
	"github.com/mihaimyh/premiumgate/pkg/server"
)

const (
	metricsNamespace = "premiumgate"
	shutdownTimeout  = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "premiumgate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zlog, err := newZerolog(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logger := zerologadapter.NewLogger(&zlog)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, closeStore, err := newUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	upgrader, err := premium.NewUpgrader(store)
	if err != nil {
		return err
	}

	policy, err := stripeprovider.ParseIdentityPolicy(cfg.IdentityPolicy)
	if err != nil {
		return err
	}

	var (
		metrics        billing.Metrics = &billing.NoopMetrics{}
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = prommetrics.NewMetrics(reg, metricsNamespace)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	provider, err := stripeprovider.NewProvider(stripeprovider.Config{
		Config: billing.Config{
			Upgrader:      upgrader,
			WebhookSecret: cfg.StripeWebhookSecret,
			APIKey:        cfg.StripeSecretKey,
			Metrics:       metrics,
			Logger:        logger,
		},
		IdentityPolicy: policy,
		Plan: stripeprovider.Plan{
			Name:       cfg.PlanName,
			UnitAmount: cfg.PlanPriceCents,
			Currency:   cfg.PlanCurrency,
		},
		SuccessURL:               cfg.SuccessURL,
		CancelURL:                cfg.CancelURL,
		IgnoreAPIVersionMismatch: cfg.IgnoreAPIVersionMismatch,
		DownstreamTimeout:        cfg.DownstreamTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create billing provider: %w", err)
	}

	limiter, closeLimiter, err := newLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	srv := server.NewHTTPServer(cfg.Addr(), server.NewRouter(server.Config{
		Provider:         provider,
		Limiter:          limiter,
		TrustedProxyHops: cfg.TrustedProxyHops,
		Metrics:          metricsHandler,
		Logger:           logger,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			premium.Field{Key: "addr", Value: srv.Addr},
			premium.Field{Key: "user_store", Value: cfg.UserStore},
			premium.Field{Key: "identity_policy", Value: string(policy)},
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}

// newZerolog builds the process logger. format is "json" or "console".
func newZerolog(out io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid LOG_FORMAT %q", format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "premiumgate").Logger(), nil
}

// newLimiter picks Redis when REDIS_URL is set and memory otherwise
func newLimiter(cfg config.Config) (ratelimit.Limiter, func(), error) {
	base := ratelimit.Config{Limit: cfg.RateLimitLimit, Window: cfg.RateLimitWindow}

	if cfg.RedisURL == "" {
		limiter, err := ratelimit.NewMemoryLimiter(base)
		return limiter, func() {}, err
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	limiter, err := ratelimit.NewRedisLimiter(redis.NewClient(opts), ratelimit.RedisConfig{Config: base})
	if err != nil {
		return nil, nil, err
	}
	return limiter, func() { _ = limiter.Close() }, nil
}

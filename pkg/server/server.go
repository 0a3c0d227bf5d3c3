// Package server exposes the billing provider over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mihaimyh/premiumgate/pkg/billing"
	"github.com/mihaimyh/premiumgate/pkg/premium"
	"github.com/mihaimyh/premiumgate/pkg/ratelimit"
)

const (
	rootPath     = "/"
	webhookPath  = "/webhook"
	checkoutPath = "/create-checkout-session"
	metricsPath  = "/metrics"

	statusMessage = "Webhook server running."
)

// Config wires the router
type Config struct {
	// Provider serves the webhook and checkout routes. Required.
	Provider billing.Provider

	// Limiter guards the checkout route (Optional)
	Limiter ratelimit.Limiter

	// TrustedProxyHops is the number of reverse proxies appending to
	// X-Forwarded-For in front of the service. 0 keys the limiter on RemoteAddr.
	TrustedProxyHops int

	// Metrics is mounted at /metrics when set
	Metrics http.Handler

	Logger premium.Logger
}

// NewRouter builds the HTTP routes
func NewRouter(config Config) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = &premium.NoopLogger{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get(rootPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(statusMessage))
	})

	// The webhook answers only 400 or 200; its signature is the only gate.
	r.Method(http.MethodPost, webhookPath, config.Provider.WebhookHandler())

	r.Group(func(r chi.Router) {
		if config.Limiter != nil {
			r.Use(ratelimit.Middleware(config.Limiter, config.TrustedProxyHops, logger))
		}
		r.Method(http.MethodPost, checkoutPath, config.Provider.CheckoutHandler())
	})

	if config.Metrics != nil {
		r.Method(http.MethodGet, metricsPath, config.Metrics)
	}

	return r
}

// requestLogger logs one line per request through logger
func requestLogger(logger premium.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request served",
					premium.Field{Key: "request_id", Value: middleware.GetReqID(r.Context())},
					premium.Field{Key: "method", Value: r.Method},
					premium.Field{Key: "path", Value: r.URL.Path},
					premium.Field{Key: "status", Value: ww.Status()},
					premium.Field{Key: "duration", Value: time.Since(start)},
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// NewHTTPServer wraps handler in an http.Server with conservative timeouts
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

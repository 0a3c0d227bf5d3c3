package billing

import (
	"github.com/mihaimyh/premiumgate/pkg/premium"
)

// Config defines the standard configuration all providers should accept
type Config struct {
	// Upgrader applies the premium upgrade once a payment is confirmed
	Upgrader *premium.Upgrader

	// WebhookSecret is the shared secret used to verify incoming webhook signatures.
	WebhookSecret string

	// APIKey is used for outbound API calls to the billing provider
	// (customer lookups, checkout session creation).
	APIKey string

	// Metrics is an optional metrics collector for tracking billing provider operations.
	// If nil, metrics will be silently ignored (no-op).
	// Use billing/metrics/prometheus.NewMetrics(reg, namespace) for Prometheus metrics.
	Metrics Metrics

	// Logger is an optional structured logger. If nil, logs are discarded.
	Logger premium.Logger
}

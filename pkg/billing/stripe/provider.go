// Package stripe connects Stripe Checkout to premium user upgrades: a webhook
// Dispatcher that upgrades users on checkout.session.completed and an
// Initiator that starts hosted checkout sessions.
package stripe

import (
	"net/http"
	"strings"
	"time"

	"github.com/mihaimyh/premiumgate/pkg/billing"
	"github.com/mihaimyh/premiumgate/pkg/premium"
)

const providerName = "stripe"

// Config extends billing.Config with Stripe-specific options
type Config struct {
	billing.Config // Base config (Upgrader, WebhookSecret, APIKey, Metrics, Logger)

	// IdentityPolicy selects how the paying user's email is resolved.
	// Defaults to PolicyInlineEmail.
	IdentityPolicy IdentityPolicy

	// Plan is the product sold by the checkout endpoint.
	Plan Plan

	// Checkout redirect targets
	SuccessURL string
	CancelURL  string

	// IgnoreAPIVersionMismatch accepts events rendered for another API version.
	IgnoreAPIVersionMismatch bool

	// DownstreamTimeout bounds the work done for one checkout completion.
	DownstreamTimeout time.Duration

	// Customers and Sessions replace the Stripe API client (Optional).
	// When both are set APIKey is not required.
	Customers CustomerGetter
	Sessions  SessionCreator
}

// Provider implements the billing.Provider interface for Stripe
type Provider struct {
	dispatcher *Dispatcher
	initiator  *Initiator
}

var _ billing.Provider = (*Provider)(nil)

// NewProvider creates a new Stripe billing provider
func NewProvider(config Config) (*Provider, error) {
	if config.Upgrader == nil {
		return nil, billing.ErrProviderNotConfigured
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}
	logger := config.Logger
	if logger == nil {
		logger = &premium.NoopLogger{}
	}

	customers, sessions := config.Customers, config.Sessions
	if customers == nil || sessions == nil {
		apiKey := strings.TrimSpace(config.APIKey)
		if apiKey == "" {
			return nil, billing.ErrProviderNotConfigured
		}
		client := NewClient(apiKey, metrics)
		if customers == nil {
			customers = client
		}
		if sessions == nil {
			sessions = client
		}
	}

	resolver, err := NewIdentityResolver(config.IdentityPolicy, customers)
	if err != nil {
		return nil, err
	}

	dispatcher, err := NewDispatcher(DispatcherConfig{
		WebhookSecret:            config.WebhookSecret,
		Resolver:                 resolver,
		Upgrader:                 config.Upgrader,
		IgnoreAPIVersionMismatch: config.IgnoreAPIVersionMismatch,
		DownstreamTimeout:        config.DownstreamTimeout,
		Logger:                   logger,
		Metrics:                  metrics,
	})
	if err != nil {
		return nil, err
	}

	initiator, err := NewInitiator(InitiatorConfig{
		Sessions:   sessions,
		Plan:       config.Plan,
		SuccessURL: config.SuccessURL,
		CancelURL:  config.CancelURL,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &Provider{
		dispatcher: dispatcher,
		initiator:  initiator,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// WebhookHandler returns the HTTP handler for Stripe webhooks
func (p *Provider) WebhookHandler() http.Handler {
	return p.dispatcher
}

// CheckoutHandler returns the HTTP handler that creates checkout sessions
func (p *Provider) CheckoutHandler() http.Handler {
	return p.initiator
}

// Dispatcher returns the webhook dispatcher
func (p *Provider) Dispatcher() *Dispatcher {
	return p.dispatcher
}

// Initiator returns the checkout session initiator
func (p *Provider) Initiator() *Initiator {
	return p.initiator
}

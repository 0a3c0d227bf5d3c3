package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/mihaimyh/premiumgate/pkg/billing"
	"github.com/mihaimyh/premiumgate/pkg/billing/internal"
	"github.com/mihaimyh/premiumgate/pkg/premium"
)

const (
	maxWebhookBodyBytes  = 256 * 1024
	webhookErrorPrefix   = "Webhook Error: "
	webhookAcknowledged  = "Received"
	signatureHeaderName  = "Stripe-Signature"
	eventStatusHandled   = "handled"
	eventStatusIgnored   = "ignored"
	defaultDownstreamTTL = 10 * time.Second
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// WebhookSecret is the endpoint signing secret (whsec_...). Required.
	WebhookSecret string

	// Resolver derives the paying user's email from a completed session. Required.
	Resolver IdentityResolver

	// Upgrader applies the premium upgrade. Required.
	Upgrader *premium.Upgrader

	// IgnoreAPIVersionMismatch accepts events rendered for a different Stripe API version.
	IgnoreAPIVersionMismatch bool

	// Tolerance is the maximum accepted signature age. Defaults to webhook.DefaultTolerance.
	Tolerance time.Duration

	// DownstreamTimeout bounds customer lookups and store updates for one event.
	// Defaults to 10s.
	DownstreamTimeout time.Duration

	Logger  premium.Logger
	Metrics billing.Metrics
}

// Dispatcher verifies Stripe webhook events and upgrades users on completed checkouts.
//
// Once a signature is verified the event is always acknowledged with 200, whatever
// happens downstream: a failed upgrade must not make Stripe redeliver the event.
type Dispatcher struct {
	secret            string
	resolver          IdentityResolver
	upgrader          *premium.Upgrader
	options           webhook.ConstructEventOptions
	downstreamTimeout time.Duration
	logger            premium.Logger
	metrics           billing.Metrics
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	secret := strings.TrimSpace(config.WebhookSecret)
	if secret == "" || config.Resolver == nil || config.Upgrader == nil {
		return nil, billing.ErrProviderNotConfigured
	}

	tolerance := config.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	downstreamTimeout := config.DownstreamTimeout
	if downstreamTimeout <= 0 {
		downstreamTimeout = defaultDownstreamTTL
	}

	logger := config.Logger
	if logger == nil {
		logger = &premium.NoopLogger{}
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}

	return &Dispatcher{
		secret:   secret,
		resolver: config.Resolver,
		upgrader: config.Upgrader,
		options: webhook.ConstructEventOptions{
			Tolerance:                tolerance,
			IgnoreAPIVersionMismatch: config.IgnoreAPIVersionMismatch,
		},
		downstreamTimeout: downstreamTimeout,
		logger:            logger,
		metrics:           metrics,
	}, nil
}

// ServeHTTP reads the raw request body and dispatches it via HandleEvent.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	internal.SetSecurityHeaders(w)

	body, err := internal.ReadBodyStrict(w, r, maxWebhookBodyBytes)
	if err != nil {
		d.metrics.RecordWebhookError(providerName, "invalid_payload")
		d.logger.Warn("webhook body rejected", premium.Field{Key: "error", Value: err})
		_ = internal.WriteText(w, http.StatusBadRequest, webhookErrorPrefix+err.Error())
		return
	}

	status, respBody := d.HandleEvent(r.Context(), body, r.Header.Get(signatureHeaderName))
	_ = internal.WriteText(w, status, respBody)
}

// HandleEvent verifies rawBody against signatureHeader and processes the event.
// rawBody must be the unmodified request payload.
//
// Returns 400 with a "Webhook Error: ..." body when verification fails and
// 200 otherwise.
func (d *Dispatcher) HandleEvent(ctx context.Context, rawBody []byte, signatureHeader string) (int, string) {
	startTime := time.Now()

	event, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, d.secret, d.options)
	if err != nil {
		d.metrics.RecordWebhookError(providerName, "auth_failed")
		d.logger.Warn("webhook signature verification failed",
			premium.Field{Key: "error", Value: fmt.Errorf("%w: %w", billing.ErrInvalidWebhookSignature, err)})
		return http.StatusBadRequest, webhookErrorPrefix + err.Error()
	}

	eventType := string(event.Type)
	if eventType == "" {
		eventType = "UNKNOWN"
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		// A dropped delivery connection does not abort the upgrade.
		downstreamCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.downstreamTimeout)
		result, err := d.handleCheckoutSessionCompleted(downstreamCtx, &event)
		cancel()
		d.report(&event, result, err)
		d.metrics.RecordWebhookEvent(providerName, eventType, eventStatusHandled)
	default:
		d.logger.Debug("ignoring webhook event",
			premium.Field{Key: "event_id", Value: event.ID},
			premium.Field{Key: "event_type", Value: eventType},
		)
		d.metrics.RecordWebhookEvent(providerName, eventType, eventStatusIgnored)
	}

	d.metrics.RecordWebhookProcessingDuration(providerName, eventType, time.Since(startTime))
	return http.StatusOK, webhookAcknowledged
}

// handleCheckoutSessionCompleted resolves the paying user and upgrades them.
// A nil Result means the store was never reached.
func (d *Dispatcher) handleCheckoutSessionCompleted(
	ctx context.Context, event *stripe.Event,
) (result *premium.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, fmt.Errorf("panic while handling checkout session: %v", rec)
		}
	}()

	if event.Data == nil {
		return nil, billing.ErrInvalidWebhookPayload
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal checkout session: %v", billing.ErrInvalidWebhookPayload, err)
	}

	email, err := d.resolver.ResolveEmail(ctx, &session)
	if err != nil {
		return nil, err
	}

	res, err := d.upgrader.Upgrade(ctx, email)
	return &res, err
}

// report logs and counts the outcome of a checkout completion. Errors stop here.
func (d *Dispatcher) report(event *stripe.Event, result *premium.Result, err error) {
	eventField := premium.Field{Key: "event_id", Value: event.ID}

	if result == nil {
		d.metrics.RecordWebhookError(providerName, "resolution_failed")
		d.logger.Error("failed to resolve paying customer", eventField, premium.Field{Key: "error", Value: err})
		return
	}

	d.metrics.RecordUpgrade(providerName, string(result.Outcome))
	emailField := premium.Field{Key: "email", Value: result.Email}

	switch result.Outcome {
	case premium.OutcomeFailed:
		d.metrics.RecordWebhookError(providerName, "store_failed")
		d.logger.Error("user store update failed", eventField, emailField, premium.Field{Key: "error", Value: err})
	case premium.OutcomeNoUser:
		d.logger.Warn("no user found", eventField, emailField)
	default:
		d.logger.Info("user upgraded to premium", eventField, emailField,
			premium.Field{Key: "rows_affected", Value: result.RowsAffected})
	}
}

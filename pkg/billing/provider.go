package billing

import (
	"net/http"
)

// Provider is the interface a payment provider integration exposes to the HTTP layer.
type Provider interface {
	// Name returns the provider name (e.g., "stripe")
	Name() string

	// WebhookHandler returns the HTTP handler that processes real-time events.
	// The implementation handles signature verification, parsing and user upgrades internally.
	WebhookHandler() http.Handler

	// CheckoutHandler returns the HTTP handler that starts a hosted checkout
	// and answers with the provider's redirect URL.
	CheckoutHandler() http.Handler
}

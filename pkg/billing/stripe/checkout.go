package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/premiumgate/pkg/billing"
	"github.com/mihaimyh/premiumgate/pkg/billing/internal"
	"github.com/mihaimyh/premiumgate/pkg/premium"
)

const (
	defaultPlanName       = "Premium Plan"
	defaultPlanUnitAmount = 500
	defaultPlanCurrency   = "usd"
	maxCheckoutBodyBytes  = 4 * 1024
)

// Plan is the single product sold through checkout.
type Plan struct {
	Name string
	// UnitAmount is the price in the currency's smallest unit (e.g. cents)
	UnitAmount int64
	Currency   string
}

// DefaultPlan returns the Premium Plan at 5.00 USD.
func DefaultPlan() Plan {
	return Plan{
		Name:       defaultPlanName,
		UnitAmount: defaultPlanUnitAmount,
		Currency:   defaultPlanCurrency,
	}
}

// InitiatorConfig configures an Initiator.
type InitiatorConfig struct {
	// Sessions creates the hosted checkout sessions. Required.
	Sessions SessionCreator

	// Plan is the line item sold. Zero fields fall back to DefaultPlan.
	Plan Plan

	// SuccessURL and CancelURL are where Stripe redirects after checkout. Required.
	SuccessURL string
	CancelURL  string

	Logger premium.Logger
}

// Initiator starts hosted checkout sessions for the premium plan.
//
// Callers are not authenticated and the email is not verified: whoever pays for
// a session upgrades the account registered under the email it carries.
type Initiator struct {
	sessions   SessionCreator
	plan       Plan
	successURL string
	cancelURL  string
	logger     premium.Logger
}

// CheckoutRequest is the body accepted by the checkout endpoint.
type CheckoutRequest struct {
	Email string `json:"email"`
}

// CheckoutResponse is returned by the checkout endpoint.
type CheckoutResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewInitiator creates an Initiator.
func NewInitiator(config InitiatorConfig) (*Initiator, error) {
	if config.Sessions == nil {
		return nil, billing.ErrProviderNotConfigured
	}
	if strings.TrimSpace(config.SuccessURL) == "" || strings.TrimSpace(config.CancelURL) == "" {
		return nil, fmt.Errorf("%w: success and cancel URLs are required", billing.ErrProviderNotConfigured)
	}

	plan := config.Plan
	defaults := DefaultPlan()
	if plan.Name == "" {
		plan.Name = defaults.Name
	}
	if plan.UnitAmount <= 0 {
		plan.UnitAmount = defaults.UnitAmount
	}
	if plan.Currency == "" {
		plan.Currency = defaults.Currency
	}

	logger := config.Logger
	if logger == nil {
		logger = &premium.NoopLogger{}
	}

	return &Initiator{
		sessions:   config.Sessions,
		plan:       plan,
		successURL: config.SuccessURL,
		cancelURL:  config.CancelURL,
		logger:     logger,
	}, nil
}

// CreateSession creates a one-off payment Checkout Session for the plan with
// customer_email pre-filled and returns the hosted checkout URL.
func (i *Initiator) CreateSession(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", billing.ErrInvalidEmail
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(i.plan.Currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(i.plan.Name),
					},
					UnitAmount: stripe.Int64(i.plan.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(email),
		// Payment-mode sessions only get a Customer object when asked to;
		// the customer lookup policy depends on it.
		CustomerCreation: stripe.String("always"),
		SuccessURL:       stripe.String(i.successURL),
		CancelURL:        stripe.String(i.cancelURL),
	}
	params.AddMetadata("email", email)

	session, err := i.sessions.CreateCheckoutSession(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	if session.URL == "" {
		return "", fmt.Errorf("%w: checkout session %s has no url", billing.ErrProviderAPIError, session.ID)
	}

	i.logger.Info("checkout session created",
		premium.Field{Key: "session_id", Value: session.ID},
		premium.Field{Key: "email", Value: email},
	)
	return session.URL, nil
}

// ServeHTTP decodes a CheckoutRequest and answers with a CheckoutResponse.
func (i *Initiator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	internal.SetSecurityHeaders(w)

	var req CheckoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckoutBodyBytes))
	if err := dec.Decode(&req); err != nil {
		_ = internal.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	url, err := i.CreateSession(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidEmail) {
			_ = internal.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "email is required"})
			return
		}
		i.logger.Error("failed to create checkout session", premium.Field{Key: "error", Value: err})
		_ = internal.WriteJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to create checkout session"})
		return
	}

	_ = internal.WriteJSON(w, http.StatusOK, CheckoutResponse{URL: url})
}

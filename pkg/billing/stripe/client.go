package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/premiumgate/pkg/billing"
)

const (
	endpointCustomers        = "/customers/{id}"
	endpointCheckoutSessions = "/checkout/sessions"
)

// CustomerGetter fetches a Stripe customer by ID.
type CustomerGetter interface {
	GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error)
}

// SessionCreator creates hosted Stripe Checkout Sessions.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// Client wraps the Stripe API client with metrics. It implements both
// CustomerGetter and SessionCreator.
type Client struct {
	stripeClient *stripe.Client
	metrics      billing.Metrics
}

var (
	_ CustomerGetter = (*Client)(nil)
	_ SessionCreator = (*Client)(nil)
)

// NewClient creates a Stripe API client for apiKey.
func NewClient(apiKey string, metrics billing.Metrics) *Client {
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}
	return &Client{
		stripeClient: stripe.NewClient(apiKey),
		metrics:      metrics,
	}
}

// GetCustomer retrieves a customer. A missing customer is reported as billing.ErrCustomerNotFound.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (*stripe.Customer, error) {
	startTime := time.Now()
	cust, err := c.stripeClient.V1Customers.Retrieve(ctx, customerID, nil)
	c.metrics.RecordAPICallDuration(providerName, endpointCustomers, time.Since(startTime))
	if err != nil {
		c.metrics.RecordAPICall(providerName, endpointCustomers, "error")
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, fmt.Errorf("%w: %s", billing.ErrCustomerNotFound, customerID)
		}
		return nil, fmt.Errorf("%w: %v", billing.ErrProviderAPIError, err)
	}
	c.metrics.RecordAPICall(providerName, endpointCustomers, "success")
	return cust, nil
}

// CreateCheckoutSession creates a Checkout Session from params.
func (c *Client) CreateCheckoutSession(
	ctx context.Context, params *stripe.CheckoutSessionCreateParams,
) (*stripe.CheckoutSession, error) {
	startTime := time.Now()
	session, err := c.stripeClient.V1CheckoutSessions.Create(ctx, params)
	c.metrics.RecordAPICallDuration(providerName, endpointCheckoutSessions, time.Since(startTime))
	if err != nil {
		c.metrics.RecordAPICall(providerName, endpointCheckoutSessions, "error")
		return nil, fmt.Errorf("%w: %v", billing.ErrProviderAPIError, err)
	}
	c.metrics.RecordAPICall(providerName, endpointCheckoutSessions, "success")
	return session, nil
}

package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/premiumgate/pkg/premium"
)

// IdentityPolicy selects how the paying customer's email is derived from a
// completed checkout session.
type IdentityPolicy string

const (
	// PolicyInlineEmail reads customer_email from the session payload.
	PolicyInlineEmail IdentityPolicy = "inline"

	// PolicyCustomerLookup fetches the session's customer from Stripe and reads its email.
	// Works when the checkout was started without an inline email.
	PolicyCustomerLookup IdentityPolicy = "customer"
)

// ParseIdentityPolicy parses a policy name. Empty selects PolicyInlineEmail.
func ParseIdentityPolicy(s string) (IdentityPolicy, error) {
	switch IdentityPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyInlineEmail:
		return PolicyInlineEmail, nil
	case PolicyCustomerLookup:
		return PolicyCustomerLookup, nil
	default:
		return "", fmt.Errorf("unknown identity policy %q", s)
	}
}

// IdentityResolver resolves the email of the user who paid for session.
// Implementations return premium.ErrEmailUnresolved when no email is available.
type IdentityResolver interface {
	ResolveEmail(ctx context.Context, session *stripe.CheckoutSession) (string, error)
}

// NewIdentityResolver builds the resolver for policy. customers is only used
// by PolicyCustomerLookup.
func NewIdentityResolver(policy IdentityPolicy, customers CustomerGetter) (IdentityResolver, error) {
	switch policy {
	case PolicyInlineEmail, "":
		return InlineEmailResolver{}, nil
	case PolicyCustomerLookup:
		if customers == nil {
			return nil, fmt.Errorf("identity policy %q requires a customer client", policy)
		}
		return &CustomerLookupResolver{customers: customers}, nil
	default:
		return nil, fmt.Errorf("unknown identity policy %q", policy)
	}
}

// InlineEmailResolver takes customer_email straight from the session.
type InlineEmailResolver struct{}

func (InlineEmailResolver) ResolveEmail(_ context.Context, session *stripe.CheckoutSession) (string, error) {
	email := strings.TrimSpace(session.CustomerEmail)
	if email == "" {
		return "", fmt.Errorf("%w: customer_email missing on checkout session %s", premium.ErrEmailUnresolved, session.ID)
	}
	return email, nil
}

// CustomerLookupResolver reads the email of the customer referenced by the session.
type CustomerLookupResolver struct {
	customers CustomerGetter
}

// NewCustomerLookupResolver creates a resolver that looks customers up through customers.
func NewCustomerLookupResolver(customers CustomerGetter) *CustomerLookupResolver {
	return &CustomerLookupResolver{customers: customers}
}

func (r *CustomerLookupResolver) ResolveEmail(ctx context.Context, session *stripe.CheckoutSession) (string, error) {
	if session.Customer == nil || session.Customer.ID == "" {
		return "", fmt.Errorf("%w: customer missing on checkout session %s", premium.ErrEmailUnresolved, session.ID)
	}

	cust, err := r.customers.GetCustomer(ctx, session.Customer.ID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch customer %s: %w", session.Customer.ID, err)
	}

	email := strings.TrimSpace(cust.Email)
	if email == "" {
		return "", fmt.Errorf("%w: customer %s has no email", premium.ErrEmailUnresolved, cust.ID)
	}
	return email, nil
}

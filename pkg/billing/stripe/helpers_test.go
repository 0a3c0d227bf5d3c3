package stripe

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/mihaimyh/premiumgate/pkg/billing"
	"github.com/mihaimyh/premiumgate/pkg/premium"
)

const (
	testWebhookSecret = "whsec_test_secret"
	testOtherSecret   = "whsec_other_secret"
	testEmail         = "a@example.com"
	testCustomerID    = "cus_test_123"
	testSessionID     = "cs_test_123"
	testCheckoutURL   = "https://checkout.stripe.com/c/pay/cs_test_123"
	testSuccessURL    = "https://app.example.com/success"
	testCancelURL     = "https://app.example.com/cancel"
)

// logEntry is one call captured by spyLogger
type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// spyLogger records every log call for assertions
type spyLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *spyLogger) record(level, msg string, fields []premium.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: m})
}

func (l *spyLogger) Debug(msg string, fields ...premium.Field) { l.record("debug", msg, fields) }
func (l *spyLogger) Info(msg string, fields ...premium.Field)  { l.record("info", msg, fields) }
func (l *spyLogger) Warn(msg string, fields ...premium.Field)  { l.record("warn", msg, fields) }
func (l *spyLogger) Error(msg string, fields ...premium.Field) { l.record("error", msg, fields) }

func (l *spyLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

type upgradeCall struct {
	email   string
	upgrade premium.UserUpgrade
}

// recordingStore is a premium.UserStore that records calls
type recordingStore struct {
	mu    sync.Mutex
	calls []upgradeCall
	rows  int64
	err   error
}

func (s *recordingStore) UpgradeUser(_ context.Context, email string, upgrade premium.UserUpgrade) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, upgradeCall{email: email, upgrade: upgrade})
	return s.rows, s.err
}

func (s *recordingStore) Calls() []upgradeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]upgradeCall(nil), s.calls...)
}

// fakeCustomers is a CustomerGetter backed by a map
type fakeCustomers struct {
	customers map[string]*stripe.Customer
	err       error
	lookups   []string
}

func (f *fakeCustomers) GetCustomer(_ context.Context, customerID string) (*stripe.Customer, error) {
	f.lookups = append(f.lookups, customerID)
	if f.err != nil {
		return nil, f.err
	}
	cust, ok := f.customers[customerID]
	if !ok {
		return nil, billing.ErrCustomerNotFound
	}
	return cust, nil
}

// fakeSessions is a SessionCreator that captures params
type fakeSessions struct {
	params []*stripe.CheckoutSessionCreateParams
	url    string
	err    error
}

func (f *fakeSessions) CreateCheckoutSession(
	_ context.Context, params *stripe.CheckoutSessionCreateParams,
) (*stripe.CheckoutSession, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: testSessionID, URL: f.url}, nil
}

// eventPayload renders a Stripe event envelope around object
func eventPayload(t *testing.T, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_test_" + eventType,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data": map[string]interface{}{
			"object": object,
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	return payload
}

func checkoutCompletedPayload(t *testing.T, email, customerID string) []byte {
	t.Helper()
	session := map[string]interface{}{
		"id":     testSessionID,
		"object": "checkout.session",
		"mode":   "payment",
	}
	if email != "" {
		session["customer_email"] = email
	}
	if customerID != "" {
		session["customer"] = customerID
	}
	return eventPayload(t, string(stripe.EventTypeCheckoutSessionCompleted), session)
}

// sign returns a Stripe-Signature header for payload
func sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	store      *recordingStore
	logger     *spyLogger
	customers  *fakeCustomers
}

func newDispatcherFixture(t *testing.T, policy IdentityPolicy, rows int64, storeErr error) *dispatcherFixture {
	t.Helper()
	store := &recordingStore{rows: rows, err: storeErr}
	upgrader, err := premium.NewUpgrader(store)
	if err != nil {
		t.Fatalf("Failed to create upgrader: %v", err)
	}
	customers := &fakeCustomers{customers: map[string]*stripe.Customer{
		testCustomerID: {ID: testCustomerID, Email: testEmail},
	}}
	resolver, err := NewIdentityResolver(policy, customers)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	logger := &spyLogger{}
	dispatcher, err := NewDispatcher(DispatcherConfig{
		WebhookSecret:            testWebhookSecret,
		Resolver:                 resolver,
		Upgrader:                 upgrader,
		IgnoreAPIVersionMismatch: true,
		Logger:                   logger,
	})
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}
	return &dispatcherFixture{
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
		customers:  customers,
	}
}

package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v78"
)

type stubIntentAPI struct {
	newFn func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getFn func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func (s *stubIntentAPI) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if s.newFn != nil {
		return s.newFn(params)
	}
	return nil, errors.New("not implemented")
}

func (s *stubIntentAPI) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if s.getFn != nil {
		return s.getFn(id, params)
	}
	return nil, errors.New("not implemented")
}

func newStubProvider(t *testing.T, api *stubIntentAPI) *StripeProvider {
	t.Helper()
	provider, err := NewStripeProvider(StripeProviderConfig{
		Clients:        &stripeClients{intents: api},
		IdempotencyKey: func() string { return "idem-1" },
	})
	if err != nil {
		t.Fatalf("new stripe provider: %v", err)
	}
	return provider
}

func TestStripeProviderRequiresAPIKeyOrClients(t *testing.T) {
	if _, err := NewStripeProvider(StripeProviderConfig{}); err == nil {
		t.Fatalf("expected construction to fail without credentials")
	}
}

func TestStripeProviderAuthorizeBuildsParams(t *testing.T) {
	var gotParams *stripe.PaymentIntentParams
	api := &stubIntentAPI{
		newFn: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			gotParams = params
			return &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil
		},
	}
	provider := newStubProvider(t, api)

	auth, err := provider.Authorize(context.Background(), AuthorizeRequest{
		Amount:   95000,
		Currency: "INR",
		Metadata: map[string]string{"orderId": "order-1"},
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if auth.Reference != "pi_123" || auth.Status != StatusPending {
		t.Fatalf("unexpected authorization: %+v", auth)
	}

	if gotParams == nil {
		t.Fatalf("expected intent params captured")
	}
	if got := stripe.Int64Value(gotParams.Amount); got != 95000 {
		t.Fatalf("expected amount 95000, got %d", got)
	}
	if got := stripe.StringValue(gotParams.Currency); got != "inr" {
		t.Fatalf("expected lowercase currency, got %s", got)
	}
	if gotParams.IdempotencyKey == nil || *gotParams.IdempotencyKey != "idem-1" {
		t.Fatalf("expected idempotency key idem-1, got %v", gotParams.IdempotencyKey)
	}
	if gotParams.Metadata["orderId"] != "order-1" {
		t.Fatalf("expected metadata carried through, got %v", gotParams.Metadata)
	}
	if gotParams.AutomaticPaymentMethods == nil || !stripe.BoolValue(gotParams.AutomaticPaymentMethods.Enabled) {
		t.Fatalf("expected automatic payment methods enabled")
	}
}

func TestStripeProviderAuthorizeCanceledIntentFails(t *testing.T) {
	api := &stubIntentAPI{
		newFn: func(_ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{ID: "pi_bad", Status: stripe.PaymentIntentStatusCanceled}, nil
		},
	}
	provider := newStubProvider(t, api)

	auth, err := provider.Authorize(context.Background(), AuthorizeRequest{Amount: 100, Currency: "INR"})
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("expected ErrAuthorizationFailed, got %v", err)
	}
	if auth.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", auth.Status)
	}
}

func TestStripeProviderAuthorizeValidatesInput(t *testing.T) {
	provider := newStubProvider(t, &stubIntentAPI{})

	if _, err := provider.Authorize(context.Background(), AuthorizeRequest{Amount: 0, Currency: "INR"}); err == nil {
		t.Fatalf("expected rejection of non-positive amount")
	}
	if _, err := provider.Authorize(context.Background(), AuthorizeRequest{Amount: 100}); err == nil {
		t.Fatalf("expected rejection of missing currency")
	}
}

func TestStripeProviderLookup(t *testing.T) {
	api := &stubIntentAPI{
		getFn: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			if id != "pi_123" {
				return nil, errors.New("unknown intent")
			}
			return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusSucceeded}, nil
		},
	}
	provider := newStubProvider(t, api)

	auth, err := provider.Lookup(context.Background(), "pi_123")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if auth.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", auth.Status)
	}

	if _, err := provider.Lookup(context.Background(), "  "); err == nil {
		t.Fatalf("expected empty reference to be rejected")
	}
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeClients struct {
	intents stripePaymentIntentAPI
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   StripeLogger
	Clock    func() time.Time
	Clients  *stripeClients

	// IdempotencyKey generates a fresh idempotency key per authorization request.
	IdempotencyKey func() string
}

// StripeProvider implements the Provider interface using Stripe PaymentIntents.
type StripeProvider struct {
	api            stripeClients
	clock          func() time.Time
	logger         StripeLogger
	idempotencyKey func() string
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{intents: sc.PaymentIntents}
	}

	if clients.intents == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idempotencyKey := cfg.IdempotencyKey
	if idempotencyKey == nil {
		idempotencyKey = uuid.NewString
	}

	return &StripeProvider{
		api: clients,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger:         logger,
		idempotencyKey: idempotencyKey,
	}, nil
}

// Authorize creates a payment intent for the requested amount and returns its normalised
// state. Amount is expressed in the currency's minor units.
func (p *StripeProvider) Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error) {
	if p == nil {
		return Authorization{}, errors.New("stripe: provider is nil")
	}
	if req.Amount <= 0 {
		return Authorization{}, errors.New("stripe: amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		return Authorization{}, errors.New("stripe: currency is required")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(p.idempotencyKey())
	if len(req.Metadata) > 0 {
		params.Metadata = make(map[string]string, len(req.Metadata))
		for k, v := range req.Metadata {
			params.Metadata[k] = v
		}
	}

	intent, err := p.api.intents.New(params)
	if err != nil {
		return Authorization{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	auth := Authorization{
		Reference: intent.ID,
		Status:    normaliseIntentStatus(intent.Status),
	}

	p.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"amount":        req.Amount,
		"currency":      currency,
		"status":        string(auth.Status),
	})

	if auth.Status == StatusFailed {
		return auth, ErrAuthorizationFailed
	}
	return auth, nil
}

// Lookup fetches the current state of a previously created payment intent.
func (p *StripeProvider) Lookup(ctx context.Context, reference string) (Authorization, error) {
	if p == nil {
		return Authorization{}, errors.New("stripe: provider is nil")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Authorization{}, errors.New("stripe: payment reference is required")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := p.api.intents.Get(reference, params)
	if err != nil {
		return Authorization{}, fmt.Errorf("stripe: fetch payment intent: %w", err)
	}

	return Authorization{
		Reference: intent.ID,
		Status:    normaliseIntentStatus(intent.Status),
	}, nil
}

func normaliseIntentStatus(status stripe.PaymentIntentStatus) Status {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}

package payments

import (
	"context"
	"errors"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or provider confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the provider reports the payment as successfully captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the provider reports a failure and no further action is possible.
	StatusFailed Status = "failed"
)

// ErrAuthorizationFailed is returned when the payment authority rejects an authorization attempt.
var ErrAuthorizationFailed = errors.New("payments: authorization failed")

// AuthorizeRequest captures the payload required to request a payment authorization.
type AuthorizeRequest struct {
	// Amount is a positive value in the currency's minor units.
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Authorization is the payment authority's answer: an opaque reference identifying the
// attempt and its current status.
type Authorization struct {
	Reference string
	Status    Status
}

// Provider defines the contract payment authority adapters implement.
type Provider interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error)
	Lookup(ctx context.Context, reference string) (Authorization, error)
}

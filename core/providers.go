package core

import (
	"context"
	"errors"
	"io"
)

// Outcome reports what a reconciliation did with an event. Both values are
// acknowledged to the provider as success; only errors trigger redelivery.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoOp    Outcome = "noop"
)

// ErrEventSignature is returned when a webhook payload cannot be verified
// against the configured secret. No state is mutated in that case.
var ErrEventSignature = errors.New("webhook signature verification failed")

type (
	// Session is an authenticated session with the identity provider.
	Session struct {
		UserID string
	}

	// IdentityService abstracts the third-party identity provider.
	// The provider owns identity and role claims; we only mirror them.
	IdentityService interface {
		// VerifySession authenticates a bearer session token.
		VerifySession(ctx context.Context, token string) (Session, error)
		// Role returns the role claim from the provider's user metadata ("" when unset).
		Role(ctx context.Context, userID string) (string, error)
		// SetEducatorRole writes the educator role claim to the provider's user metadata.
		SetEducatorRole(ctx context.Context, userID string) error
	}

	// CheckoutParams describes an outbound checkout session.
	// PurchaseID travels in the session metadata as the correlation token the
	// payment reconciler joins on; it must be set before the session is created.
	CheckoutParams struct {
		AmountMinor int64 // minor currency units
		Currency    string
		ProductName string
		SuccessURL  string
		CancelURL   string
		PurchaseID  string
	}

	CheckoutSession struct {
		ID  string
		URL string
	}

	// PaymentService abstracts the third-party payment provider.
	PaymentService interface {
		CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
		// ResolvePurchaseID maps a payment-transaction id back to the purchase
		// correlation token embedded at checkout. Returns "" (and no error)
		// when no session or token resolves; the event then no-ops.
		ResolvePurchaseID(ctx context.Context, intentID string) (string, error)
	}

	// MediaService abstracts the third-party media host.
	MediaService interface {
		// Upload stores the file and returns its public URL.
		Upload(ctx context.Context, file io.Reader, name string) (string, error)
	}
)

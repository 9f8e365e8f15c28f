package paymentsvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/purchase"
)

// metadataPurchaseKey is the session-metadata key carrying the purchase
// correlation token.
const metadataPurchaseKey = "purchaseId"

// Service delegates payment capture to Stripe.
type Service struct {
	webhookSecret string
}

var (
	_ core.PaymentService  = (*Service)(nil)
	_ purchase.EventParser = (*Service)(nil)
)

func NewService(conf *core.Config) *Service {
	stripe.Key = conf.Stripe.SecretKey
	return &Service{webhookSecret: conf.Stripe.WebhookSecret}
}

func (svc *Service) CreateCheckoutSession(ctx context.Context, p core.CheckoutParams) (core.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.Currency),
				UnitAmount: stripe.Int64(p.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.ProductName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	params.AddMetadata(metadataPurchaseKey, p.PurchaseID)

	sess, err := session.New(params)
	if err != nil {
		return core.CheckoutSession{}, errors.Wrap(err, "creating checkout session")
	}
	return core.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ResolvePurchaseID lists the checkout sessions behind a payment intent and
// extracts the purchase correlation token from the session metadata.
// An intent without a session or token resolves to "" (unrelated integration).
func (svc *Service) ResolvePurchaseID(ctx context.Context, intentID string) (string, error) {
	params := &stripe.CheckoutSessionListParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx

	iter := session.List(params)
	for iter.Next() {
		sess := iter.CheckoutSession()
		if id := sess.Metadata[metadataPurchaseKey]; id != "" {
			return id, nil
		}
	}
	if err := iter.Err(); err != nil {
		return "", errors.Wrap(err, "listing checkout sessions")
	}
	return "", nil
}

// ParseEvent verifies the Stripe-Signature header against the raw body and
// decodes the payment intent behind the event.
func (svc *Service) ParseEvent(payload []byte, sigHeader string) (purchase.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, svc.webhookSecret)
	if err != nil {
		return purchase.Event{}, fmt.Errorf("%w: %v", core.ErrEventSignature, err)
	}

	var intent stripe.PaymentIntent
	if err = json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return purchase.Event{}, core.NewValidationError(errors.Wrap(err, "decoding payment event"))
	}
	return purchase.Event{
		Type:     purchase.EventType(event.Type),
		IntentID: intent.ID,
	}, nil
}

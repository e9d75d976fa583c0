// Package cardprocessor wraps the card-payments collaborator (Stripe) used
// on the fiat rail: PaymentIntent lifecycle, customer creation, and webhook
// signature verification.
package cardprocessor

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/cyphera/billing-core/internal/money"
)

type Client struct {
	webhookSecret string
}

func New(apiKey, webhookSecret string) *Client {
	stripe.Key = apiKey
	return &Client{webhookSecret: webhookSecret}
}

// CreateCustomer registers a card token against a new Stripe customer,
// backing create_customer_with_source (§4.6).
func (c *Client) CreateCustomer(ctx context.Context, email, sourceToken string) (string, error) {
	params := &stripe.CustomerParams{
		Email:  stripe.String(email),
		Source: &stripe.SourceParams{Token: stripe.String(sourceToken)},
	}
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("cardprocessor: create customer: %w", err)
	}
	return cust.ID, nil
}

// CreatePaymentIntent creates a manual-capture PaymentIntent for the fee's
// amount/currency, per create_payment_intent_for_fee (§4.6).
func (c *Client) CreatePaymentIntent(ctx context.Context, amount money.Amount, currency money.Currency, customerID string) (id, clientSecret string, err error) {
	u := amount.Uint256()
	minorUnits, overflow := u.Uint64WithOverflow()
	if overflow {
		return "", "", fmt.Errorf("cardprocessor: amount exceeds int64 range for a fiat payment intent")
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(int64(minorUnits)),
		Currency:           stripe.String(string(currency)),
		Customer:           stripe.String(customerID),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", "", fmt.Errorf("cardprocessor: create payment intent: %w", err)
	}
	return pi.ID, pi.ClientSecret, nil
}

// ChargeCustomer creates and immediately confirms an off-session,
// automatic-capture PaymentIntent against a customer's saved card, backing
// the fiat rail of pay_subscriptions (§4.9) — subscriptions bill a saved
// card directly rather than leaving a capture step for the buyer.
func (c *Client) ChargeCustomer(ctx context.Context, amount money.Amount, currency money.Currency, customerID string) (chargeID string, err error) {
	u := amount.Uint256()
	minorUnits, overflow := u.Uint64WithOverflow()
	if overflow {
		return "", fmt.Errorf("cardprocessor: amount exceeds int64 range for a subscription charge")
	}
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(minorUnits)),
		Currency:      stripe.String(string(currency)),
		Customer:      stripe.String(customerID),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.Context = ctx
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("cardprocessor: charge customer: %w", err)
	}
	return pi.ID, nil
}

// Capture captures amount from an existing PaymentIntent, backing
// capture_order (§4.6). A zero amount captures the full authorized amount.
func (c *Client) Capture(ctx context.Context, paymentIntentID string, amount money.Amount) error {
	params := &stripe.PaymentIntentCaptureParams{}
	if !amount.IsZero() {
		u := amount.Uint256()
		minorUnits, overflow := u.Uint64WithOverflow()
		if overflow {
			return fmt.Errorf("cardprocessor: capture amount exceeds int64 range")
		}
		params.AmountToCapture = stripe.Int64(int64(minorUnits))
	}
	params.Context = ctx
	_, err := paymentintent.Capture(paymentIntentID, params)
	if err != nil {
		return fmt.Errorf("cardprocessor: capture: %w", err)
	}
	return nil
}

// Refund refunds amount of a PaymentIntent's captured charge, backing
// refund_order (§4.6). orderID is attached as refund metadata so the
// provider dashboard can be cross-referenced back to the order.
func (c *Client) Refund(ctx context.Context, paymentIntentID string, amount money.Amount, orderID string) error {
	u := amount.Uint256()
	minorUnits, overflow := u.Uint64WithOverflow()
	if overflow {
		return fmt.Errorf("cardprocessor: refund amount exceeds int64 range")
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(int64(minorUnits)),
		Metadata:      map[string]string{"order_id": orderID},
	}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("cardprocessor: refund: %w", err)
	}
	return nil
}

// VerifyWebhook validates the Stripe-Signature header against the
// configured signing secret and returns the decoded event, resolving the
// webhook-verification open question (§6/§9) via stripe-go's own HMAC
// construction over the raw payload and timestamp.
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signatureHeader, c.webhookSecret)
}

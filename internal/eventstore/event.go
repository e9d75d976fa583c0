// Package eventstore implements the transactional outbox's payload
// envelope and the polling worker that drains it, one event at a time, in
// ascending id order.
package eventstore

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Kind string

const (
	KindNoOp                                 Kind = "no_op"
	KindInvoicePaid                          Kind = "invoice_paid"
	KindPaymentIntentAmountCapturableUpdated Kind = "payment_intent_amount_capturable_updated"
	KindPaymentIntentPaymentFailed           Kind = "payment_intent_payment_failed"
	KindPayoutInitiated                      Kind = "payout_initiated"
)

// envelope is the on-the-wire shape of EventEntry.Event: a discriminator
// plus kind-specific fields, all inlined rather than nested so a reader can
// grep the raw JSON column for a field name.
type envelope struct {
	Kind      Kind      `json:"kind"`
	InvoiceID uuid.UUID `json:"invoice_id,omitempty"`
	IntentID  string    `json:"intent_id,omitempty"`
	ChargeID  string    `json:"charge_id,omitempty"`
	PayoutID  uuid.UUID `json:"payout_id,omitempty"`
}

func MarshalNoOp() ([]byte, error) {
	return json.Marshal(envelope{Kind: KindNoOp})
}

func MarshalInvoicePaid(invoiceID uuid.UUID) ([]byte, error) {
	return json.Marshal(envelope{Kind: KindInvoicePaid, InvoiceID: invoiceID})
}

// MarshalPaymentIntentAmountCapturableUpdated carries the charge id straight
// from the webhook payload, since the event handler has no other way to
// learn it (it only re-reads the PaymentIntent row, which doesn't have it
// yet at enqueue time).
func MarshalPaymentIntentAmountCapturableUpdated(intentID, chargeID string) ([]byte, error) {
	return json.Marshal(envelope{Kind: KindPaymentIntentAmountCapturableUpdated, IntentID: intentID, ChargeID: chargeID})
}

func MarshalPaymentIntentPaymentFailed(intentID string) ([]byte, error) {
	return json.Marshal(envelope{Kind: KindPaymentIntentPaymentFailed, IntentID: intentID})
}

func MarshalPayoutInitiated(payoutID uuid.UUID) ([]byte, error) {
	return json.Marshal(envelope{Kind: KindPayoutInitiated, PayoutID: payoutID})
}

func unmarshal(payload []byte) (envelope, error) {
	var e envelope
	err := json.Unmarshal(payload, &e)
	return e, err
}

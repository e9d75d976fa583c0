// Package webhook ingests the two rails' inbound callbacks: the
// crypto-payments collaborator's credit notification, applied directly to
// an invoice inside one transaction (§4.1), and the card processor's signed
// webhook, whose recognized event types are wrapped and pushed onto the
// event-store outbox rather than acted on inline — keeping ingestion cheap
// and linearizable with respect to handler execution (§5).
package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/clients/cardprocessor"
	"github.com/cyphera/billing-core/internal/eventstore"
	"github.com/cyphera/billing-core/internal/invoice"
	"github.com/cyphera/billing-core/internal/logger"
	"github.com/cyphera/billing-core/internal/money"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/svcerr"

	"go.uber.org/zap"
)

type Service struct {
	invoices *invoice.Service
	repos    *repo.Repos
	cards    *cardprocessor.Client
}

func New(invoices *invoice.Service, repos *repo.Repos, cards *cardprocessor.Client) *Service {
	return &Service{invoices: invoices, repos: repos, cards: cards}
}

// InboundCryptoTransfer backs POST /v2/callback/payments/inbound_tx: the
// collaborator reports a credit by account, not by invoice, so the invoice
// is resolved from the account link before the credit is applied.
func (s *Service) InboundCryptoTransfer(ctx context.Context, accountID uuid.UUID, amount money.Amount, transactionID uuid.UUID) error {
	invoiceID, ok, err := s.repos.Invoices.IDForAccountInternal(ctx, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return svcerr.ValidationMsg("no invoice linked to this account")
	}
	return s.invoices.ApplyCredit(ctx, invoiceID, transactionID, amount)
}

// stripePaymentIntentPayload is the minimal subset of a Stripe
// PaymentIntent's JSON body the two recognized event types need, decoded
// straight from the event's raw object rather than the full SDK struct —
// the same map-then-decode shape the reference platform's webhook
// processing uses for provider payloads that only need a few fields read.
type stripePaymentIntentPayload struct {
	ID           string `json:"id"`
	LatestCharge string `json:"latest_charge"`
}

// HandleStripe verifies the Stripe-Signature header, then for each
// recognized event type enqueues the corresponding event-store entry
// (§4.2). Unrecognized event types are acknowledged and ignored.
func (s *Service) HandleStripe(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.cards.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		return svcerr.Validation(map[string][]svcerr.FieldError{
			"signature": {{Code: "invalid", Message: err.Error()}},
		})
	}

	switch string(event.Type) {
	case "payment_intent.amount_capturable_updated":
		return s.enqueueCapturableUpdated(ctx, event.Data.Raw)
	case "payment_intent.payment_failed":
		return s.enqueuePaymentFailed(ctx, event.Data.Raw)
	default:
		logger.Info("webhook: ignoring unhandled stripe event type", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *Service) enqueueCapturableUpdated(ctx context.Context, raw json.RawMessage) error {
	var pi stripePaymentIntentPayload
	if err := json.Unmarshal(raw, &pi); err != nil {
		return svcerr.Internal(fmt.Errorf("webhook: decode payment_intent.amount_capturable_updated: %w", err))
	}
	payload, err := eventstore.MarshalPaymentIntentAmountCapturableUpdated(pi.ID, pi.LatestCharge)
	if err != nil {
		return svcerr.Internal(err)
	}
	if _, err := s.repos.Events.Add(ctx, payload); err != nil {
		return err
	}
	return nil
}

func (s *Service) enqueuePaymentFailed(ctx context.Context, raw json.RawMessage) error {
	var pi stripePaymentIntentPayload
	if err := json.Unmarshal(raw, &pi); err != nil {
		return svcerr.Internal(fmt.Errorf("webhook: decode payment_intent.payment_failed: %w", err))
	}
	payload, err := eventstore.MarshalPaymentIntentPaymentFailed(pi.ID)
	if err != nil {
		return svcerr.Internal(err)
	}
	if _, err := s.repos.Events.Add(ctx, payload); err != nil {
		return err
	}
	return nil
}

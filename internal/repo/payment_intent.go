package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// PaymentIntentRepo is driven internally by the invoice/fiat-payment
// services (creation, linking, status updates); only the read path is
// reachable by a caller's own ACL check.
type PaymentIntentRepo struct {
	q   db.Querier
	acl *authz.ACL
}

func (r *PaymentIntentRepo) Create(ctx context.Context, arg db.CreatePaymentIntentParams) (db.PaymentIntent, error) {
	pi, err := r.q.CreatePaymentIntent(ctx, arg)
	if err != nil {
		return db.PaymentIntent{}, mapWriteErr(err, "payment_intent")
	}
	return pi, nil
}

// Get is the caller-facing read path: ownership is resolved through
// whichever of invoice/fee this intent is linked to, if either.
func (r *PaymentIntentRepo) Get(ctx context.Context, p authz.Principal, id string) (db.PaymentIntent, error) {
	pi, err := r.q.GetPaymentIntent(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.PaymentIntent{}, svcerr.NotFound("payment intent not found")
		}
		return db.PaymentIntent{}, svcerr.Internal(err)
	}
	switch {
	case pi.InvoiceID.Valid:
		invoiceID := uuid.UUID(pi.InvoiceID.Bytes)
		resolver := authz.OwnerFromInvoice(r.q, invoiceID)
		if err := r.acl.Check(ctx, p, authz.ResourcePaymentIntent, authz.ActionRead, resolver); err != nil {
			return db.PaymentIntent{}, err
		}
	case pi.FeeID.Valid:
		feeID := uuid.UUID(pi.FeeID.Bytes)
		fee, err := r.q.GetFee(ctx, feeID)
		if err != nil {
			return db.PaymentIntent{}, svcerr.Internal(err)
		}
		resolver := authz.OwnerFromOrderStore(r.q, fee.OrderID)
		if err := r.acl.Check(ctx, p, authz.ResourcePaymentIntent, authz.ActionRead, resolver); err != nil {
			return db.PaymentIntent{}, err
		}
	}
	return pi, nil
}

// GetInternal fetches a payment intent without an ACL check, for use by
// event-store handlers and webhook ingestion running with system authority.
func (r *PaymentIntentRepo) GetInternal(ctx context.Context, id string) (db.PaymentIntent, error) {
	pi, err := r.q.GetPaymentIntent(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.PaymentIntent{}, svcerr.NotFound("payment intent not found")
		}
		return db.PaymentIntent{}, svcerr.Internal(err)
	}
	return pi, nil
}

func (r *PaymentIntentRepo) UpdateChargeID(ctx context.Context, id string, chargeID pgtype.Text, status string) error {
	if err := r.q.UpdatePaymentIntentChargeID(ctx, id, chargeID, status); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

func (r *PaymentIntentRepo) LinkToInvoice(ctx context.Context, intentID string, invoiceID uuid.UUID) error {
	if err := r.q.LinkPaymentIntentToInvoice(ctx, intentID, invoiceID); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

func (r *PaymentIntentRepo) LinkToFee(ctx context.Context, intentID string, feeID uuid.UUID) error {
	if err := r.q.LinkPaymentIntentToFee(ctx, intentID, feeID); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

// IDForInvoice is the reverse lookup capture_order/refund_order need: given
// an invoice, find the PaymentIntent linked to it. A missing row (no intent
// ever created, or the intent was for a different invoice) is reported as
// ok=false rather than an error.
func (r *PaymentIntentRepo) IDForInvoice(ctx context.Context, invoiceID uuid.UUID) (string, bool, error) {
	id, ok, err := r.q.GetPaymentIntentIDForInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", false, nil
		}
		return "", false, svcerr.Internal(err)
	}
	return id, ok, nil
}

func (r *PaymentIntentRepo) InvoiceIDFor(ctx context.Context, intentID string) (uuid.UUID, bool, error) {
	id, ok, err := r.q.GetInvoiceIDForPaymentIntent(ctx, intentID)
	if err != nil {
		return uuid.UUID{}, false, svcerr.Internal(err)
	}
	return id, ok, nil
}

func (r *PaymentIntentRepo) FeeIDFor(ctx context.Context, intentID string) (uuid.UUID, bool, error) {
	id, ok, err := r.q.GetFeeIDForPaymentIntent(ctx, intentID)
	if err != nil {
		return uuid.UUID{}, false, svcerr.Internal(err)
	}
	return id, ok, nil
}

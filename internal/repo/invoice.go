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

type InvoiceRepo struct {
	q   db.Querier
	acl *authz.ACL
}

func (r *InvoiceRepo) Create(ctx context.Context, p authz.Principal, arg db.CreateInvoiceParams) (db.Invoice, error) {
	if arg.BuyerUserID != p.UserID {
		return db.Invoice{}, svcerr.Forbidden("cannot create an invoice for another user")
	}
	inv, err := r.q.CreateInvoice(ctx, arg)
	if err != nil {
		return db.Invoice{}, mapWriteErr(err, "invoice")
	}
	return inv, nil
}

func (r *InvoiceRepo) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (db.Invoice, error) {
	inv, err := r.q.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Invoice{}, svcerr.NotFound("invoice not found")
		}
		return db.Invoice{}, svcerr.Internal(err)
	}
	owner := func(context.Context) (uuid.UUID, error) { return inv.BuyerUserID, nil }
	if err := r.acl.Check(ctx, p, authz.ResourceInvoice, authz.ActionRead, owner); err != nil {
		return db.Invoice{}, err
	}
	return inv, nil
}

// GetForUpdate locks the invoice row; callers must already be inside a
// transaction bound to r.q (via Repos.WithQuerier(q.WithTx(tx))).
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, p authz.Principal, id uuid.UUID) (db.Invoice, error) {
	inv, err := r.q.GetInvoiceForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Invoice{}, svcerr.NotFound("invoice not found")
		}
		return db.Invoice{}, svcerr.Internal(err)
	}
	owner := func(context.Context) (uuid.UUID, error) { return inv.BuyerUserID, nil }
	if err := r.acl.Check(ctx, p, authz.ResourceInvoice, authz.ActionWrite, owner); err != nil {
		return db.Invoice{}, err
	}
	return inv, nil
}

func (r *InvoiceRepo) UpdateAmountCaptured(ctx context.Context, p authz.Principal, id uuid.UUID, amountCaptured pgtype.Numeric) error {
	owner := func(context.Context) (uuid.UUID, error) { return r.q.GetInvoiceOwner(ctx, id) }
	if err := r.acl.Check(ctx, p, authz.ResourceInvoice, authz.ActionWrite, owner); err != nil {
		return err
	}
	if err := r.q.UpdateInvoiceAmountCaptured(ctx, id, amountCaptured); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

func (r *InvoiceRepo) MarkPaid(ctx context.Context, p authz.Principal, id uuid.UUID, finalAmountPaid, finalCashbackAmount pgtype.Numeric, paidAt pgtype.Timestamptz) error {
	owner := func(context.Context) (uuid.UUID, error) { return r.q.GetInvoiceOwner(ctx, id) }
	if err := r.acl.Check(ctx, p, authz.ResourceInvoice, authz.ActionWrite, owner); err != nil {
		return err
	}
	if err := r.q.MarkInvoicePaid(ctx, id, finalAmountPaid, finalCashbackAmount, paidAt); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

// GetForUpdateInternal, UpdateAmountCapturedInternal and MarkPaidInternal skip
// the ACL check entirely: they back collaborator callbacks and event-store
// handlers, which run with system authority rather than on behalf of any
// authenticated principal.
func (r *InvoiceRepo) GetForUpdateInternal(ctx context.Context, id uuid.UUID) (db.Invoice, error) {
	inv, err := r.q.GetInvoiceForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Invoice{}, svcerr.NotFound("invoice not found")
		}
		return db.Invoice{}, svcerr.Internal(err)
	}
	return inv, nil
}

func (r *InvoiceRepo) UpdateAmountCapturedInternal(ctx context.Context, id uuid.UUID, amountCaptured pgtype.Numeric) error {
	if err := r.q.UpdateInvoiceAmountCaptured(ctx, id, amountCaptured); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

func (r *InvoiceRepo) MarkPaidInternal(ctx context.Context, id uuid.UUID, finalAmountPaid, finalCashbackAmount pgtype.Numeric, paidAt pgtype.Timestamptz) error {
	if err := r.q.MarkInvoicePaid(ctx, id, finalAmountPaid, finalCashbackAmount, paidAt); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

// InsertAmountReceived records an inbound crypto credit. ok is false (no
// error) when transaction_id was already recorded — the idempotent-abort
// case credit application relies on (§4.1).
func (r *InvoiceRepo) InsertAmountReceived(ctx context.Context, arg db.InsertAmountReceivedParams) (ar db.AmountReceived, ok bool, err error) {
	ar, err = r.q.InsertAmountReceived(ctx, arg)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			return db.AmountReceived{}, false, nil
		}
		return db.AmountReceived{}, false, svcerr.Internal(err)
	}
	return ar, true, nil
}

// UnlinkAccount clears the invoice's account_id once its crypto account has
// been drained; driven internally by the InvoicePaid event handler.
func (r *InvoiceRepo) UnlinkAccount(ctx context.Context, id uuid.UUID) error {
	if err := r.q.UnlinkInvoiceAccount(ctx, id); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

// IDForAccountInternal resolves the invoice linked to a crypto account, the
// inbound-transfer callback's only way to learn which invoice a credit
// belongs to (the collaborator reports account and amount, not invoice id).
// Skips the ACL check: it backs the collaborator callback, which runs with
// system authority rather than on behalf of any authenticated principal.
func (r *InvoiceRepo) IDForAccountInternal(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool, error) {
	id, ok, err := r.q.GetInvoiceIDForAccount(ctx, accountID)
	if err != nil {
		return uuid.UUID{}, false, svcerr.Internal(err)
	}
	return id, ok, nil
}

func (r *InvoiceRepo) ListOrders(ctx context.Context, p authz.Principal, invoiceID uuid.UUID) ([]db.Order, error) {
	owner := func(context.Context) (uuid.UUID, error) { return r.q.GetInvoiceOwner(ctx, invoiceID) }
	if err := r.acl.Check(ctx, p, authz.ResourceOrder, authz.ActionRead, owner); err != nil {
		return nil, err
	}
	orders, err := r.q.ListOrdersByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return orders, nil
}

// ListOrdersInternal skips the ACL check, for event-store handlers and
// collaborator callbacks running with system authority.
func (r *InvoiceRepo) ListOrdersInternal(ctx context.Context, invoiceID uuid.UUID) ([]db.Order, error) {
	orders, err := r.q.ListOrdersByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return orders, nil
}

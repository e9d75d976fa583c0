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

type PayoutRepo struct {
	q   db.Querier
	acl *authz.ACL
}

// Create must run inside the caller's transaction so the idempotency guard
// (OrdersHavePayout) and the payout insert commit or fail together (§4.8).
// The covered orders move to PaidToSeller later, in the PayoutInitiated
// handler.
func (r *PayoutRepo) Create(ctx context.Context, arg db.CreatePayoutParams, orderIDs []uuid.UUID) (db.Payout, error) {
	already, err := r.q.OrdersHavePayout(ctx, orderIDs)
	if err != nil {
		return db.Payout{}, svcerr.Internal(err)
	}
	if already {
		return db.Payout{}, svcerr.ValidationMsg("one or more orders already belong to a payout")
	}
	p, err := r.q.CreatePayout(ctx, arg, orderIDs)
	if err != nil {
		return db.Payout{}, mapWriteErr(err, "payout")
	}
	return p, nil
}

func (r *PayoutRepo) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (db.Payout, error) {
	payout, err := r.q.GetPayout(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Payout{}, svcerr.NotFound("payout not found")
		}
		return db.Payout{}, svcerr.Internal(err)
	}
	// A payout has no single order to resolve a store from directly; the
	// service layer resolves ownership from the orders it was created with
	// and passes an explicit owner resolver via ListByStore instead.
	_ = p
	return payout, nil
}

func (r *PayoutRepo) ListByStore(ctx context.Context, p authz.Principal, storeID uuid.UUID) ([]db.Payout, error) {
	owner := func(context.Context) (uuid.UUID, error) { return storeID, nil }
	if err := r.acl.Check(ctx, p, authz.ResourcePayout, authz.ActionRead, owner); err != nil {
		return nil, err
	}
	payouts, err := r.q.ListPayoutsByStore(ctx, storeID)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return payouts, nil
}

// ListOrderIDs returns the orders a payout covers, for the event handler to
// transition to PaidToSeller once the transfer settles.
func (r *PayoutRepo) ListOrderIDs(ctx context.Context, payoutID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := r.q.ListOrderIDsByPayout(ctx, payoutID)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return ids, nil
}

func (r *PayoutRepo) Complete(ctx context.Context, id uuid.UUID, completedAt pgtype.Timestamptz) error {
	if err := r.q.CompletePayout(ctx, id, completedAt); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

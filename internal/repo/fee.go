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

type FeeRepo struct {
	q   db.Querier
	acl *authz.ACL
}

func (r *FeeRepo) Create(ctx context.Context, arg db.CreateFeeParams) (db.Fee, error) {
	f, err := r.q.CreateFee(ctx, arg)
	if err != nil {
		return db.Fee{}, mapWriteErr(err, "fee")
	}
	return f, nil
}

func (r *FeeRepo) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (db.Fee, error) {
	f, err := r.q.GetFee(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Fee{}, svcerr.NotFound("fee not found")
		}
		return db.Fee{}, svcerr.Internal(err)
	}
	owner := func(context.Context) (uuid.UUID, error) { return r.q.GetOrderStoreID(ctx, f.OrderID) }
	if err := r.acl.Check(ctx, p, authz.ResourceFee, authz.ActionRead, owner); err != nil {
		return db.Fee{}, err
	}
	return f, nil
}

func (r *FeeRepo) ListByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]db.Fee, error) {
	if len(orderIDs) == 0 {
		return nil, svcerr.ValidationMsg("at least one order id is required")
	}
	fees, err := r.q.ListFeesByOrders(ctx, orderIDs)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return fees, nil
}

func (r *FeeRepo) UpdateStatus(ctx context.Context, p authz.Principal, id uuid.UUID, status string, chargeID pgtype.Text) error {
	f, err := r.q.GetFee(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return svcerr.NotFound("fee not found")
		}
		return svcerr.Internal(err)
	}
	owner := func(context.Context) (uuid.UUID, error) { return r.q.GetOrderStoreID(ctx, f.OrderID) }
	if err := r.acl.Check(ctx, p, authz.ResourceFee, authz.ActionWrite, owner); err != nil {
		return err
	}
	if err := r.q.UpdateFeeStatus(ctx, id, status, chargeID); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

// UpdateStatusInternal skips the ACL check, for the webhook-driven fee
// charge callback running with system authority.
func (r *FeeRepo) UpdateStatusInternal(ctx context.Context, id uuid.UUID, status string, chargeID pgtype.Text) error {
	if err := r.q.UpdateFeeStatus(ctx, id, status, chargeID); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

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

type OrderRepo struct {
	q   db.Querier
	acl *authz.ACL
}

func (r *OrderRepo) Create(ctx context.Context, arg db.CreateOrderParams) (db.Order, error) {
	o, err := r.q.CreateOrder(ctx, arg)
	if err != nil {
		return db.Order{}, mapWriteErr(err, "order")
	}
	return o, nil
}

func (r *OrderRepo) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (db.Order, error) {
	o, err := r.q.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Order{}, svcerr.NotFound("order not found")
		}
		return db.Order{}, svcerr.Internal(err)
	}
	owner := func(context.Context) (uuid.UUID, error) { return r.q.GetInvoiceOwner(ctx, o.InvoiceID) }
	if err := r.acl.Check(ctx, p, authz.ResourceOrder, authz.ActionRead, owner); err != nil {
		return db.Order{}, err
	}
	return o, nil
}

func (r *OrderRepo) ListByStoreAndState(ctx context.Context, p authz.Principal, storeID uuid.UUID, state string) ([]db.Order, error) {
	if state == "" {
		return nil, svcerr.ValidationMsg("state must be specified to avoid a full scan")
	}
	owner := func(context.Context) (uuid.UUID, error) { return storeID, nil }
	if err := r.acl.Check(ctx, p, authz.ResourceOrder, authz.ActionRead, owner); err != nil {
		return nil, err
	}
	orders, err := r.q.ListOrdersByStoreAndState(ctx, storeID, state)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return orders, nil
}

// UpdateState is invoked by the invoice service's state machine only; the
// caller (not this repo) is responsible for validating the transition is
// legal under the closed state graph.
func (r *OrderRepo) UpdateState(ctx context.Context, id uuid.UUID, state string) error {
	if err := r.q.UpdateOrderState(ctx, id, state); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

func (r *OrderRepo) UpdateStripeFee(ctx context.Context, id uuid.UUID, fee pgtype.Numeric) error {
	if err := r.q.UpdateOrderStripeFee(ctx, id, fee); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

// GetActiveExchangeRate reports ok=false with a nil error if the order
// currently has no active rate — has_missing_rates in the invoice read path.
func (r *OrderRepo) GetActiveExchangeRate(ctx context.Context, orderID uuid.UUID) (db.OrderExchangeRate, bool, error) {
	rate, err := r.q.GetActiveExchangeRate(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		return db.OrderExchangeRate{}, false, nil
	}
	if err != nil {
		return db.OrderExchangeRate{}, false, svcerr.Internal(err)
	}
	return rate, true, nil
}

// Requote expires the current active rate (if any) and inserts a new one,
// the two-statement sequence recalc_invoice needs — run inside the caller's
// transaction.
func (r *OrderRepo) Requote(ctx context.Context, orderID uuid.UUID, arg db.AddExchangeRateParams) (db.OrderExchangeRate, error) {
	if err := r.q.ExpireActiveExchangeRate(ctx, orderID); err != nil {
		return db.OrderExchangeRate{}, svcerr.Internal(err)
	}
	rate, err := r.q.AddNewActiveExchangeRate(ctx, arg)
	if err != nil {
		return db.OrderExchangeRate{}, svcerr.Internal(err)
	}
	return rate, nil
}

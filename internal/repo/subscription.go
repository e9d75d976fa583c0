package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/svcerr"
)

type SubscriptionRepo struct {
	q   db.Querier
	acl *authz.ACL
}

func (r *SubscriptionRepo) GetStoreSubscription(ctx context.Context, p authz.Principal, storeID uuid.UUID) (db.StoreSubscription, bool, error) {
	owner := func(context.Context) (uuid.UUID, error) { return storeID, nil }
	if err := r.acl.Check(ctx, p, authz.ResourceStoreSubscription, authz.ActionRead, owner); err != nil {
		return db.StoreSubscription{}, false, err
	}
	sub, ok, err := r.q.GetStoreSubscription(ctx, storeID)
	if err != nil {
		return db.StoreSubscription{}, false, svcerr.Internal(err)
	}
	return sub, ok, nil
}

// Update sets a store's subscription terms/status, backing PUT
// /v1/stores/{id}/subscription (§6).
func (r *SubscriptionRepo) Update(ctx context.Context, p authz.Principal, arg db.UpdateStoreSubscriptionParams) (db.StoreSubscription, error) {
	owner := func(context.Context) (uuid.UUID, error) { return arg.StoreID, nil }
	if err := r.acl.Check(ctx, p, authz.ResourceStoreSubscription, authz.ActionWrite, owner); err != nil {
		return db.StoreSubscription{}, err
	}
	s, err := r.q.UpdateStoreSubscription(ctx, arg)
	if err != nil {
		return db.StoreSubscription{}, svcerr.Internal(err)
	}
	return s, nil
}

func (r *SubscriptionRepo) StartTrial(ctx context.Context, storeID uuid.UUID, currency string, trialStart pgtype.Timestamptz) error {
	if err := r.q.UpsertStoreSubscriptionTrial(ctx, storeID, currency, trialStart); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

// GetStoreSubscriptionInternal skips the ACL check: it backs the periodic
// create_subscriptions/pay_subscriptions batch runs (§4.9), which run with
// system authority rather than on behalf of any authenticated principal.
func (r *SubscriptionRepo) GetStoreSubscriptionInternal(ctx context.Context, storeID uuid.UUID) (db.StoreSubscription, bool, error) {
	sub, ok, err := r.q.GetStoreSubscription(ctx, storeID)
	if err != nil {
		return db.StoreSubscription{}, false, svcerr.Internal(err)
	}
	return sub, ok, nil
}

func (r *SubscriptionRepo) Create(ctx context.Context, arg db.CreateSubscriptionParams) (db.Subscription, error) {
	s, err := r.q.CreateSubscription(ctx, arg)
	if err != nil {
		return db.Subscription{}, mapWriteErr(err, "subscription")
	}
	return s, nil
}

func (r *SubscriptionRepo) ListUnpaidOlderThan(ctx context.Context, cutoff pgtype.Timestamptz) ([]db.Subscription, error) {
	subs, err := r.q.ListUnpaidSubscriptionsOlderThan(ctx, cutoff)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return subs, nil
}

func (r *SubscriptionRepo) MarkPaid(ctx context.Context, id, subscriptionPaymentID uuid.UUID) error {
	if err := r.q.MarkSubscriptionPaid(ctx, id, subscriptionPaymentID); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

func (r *SubscriptionRepo) CreatePayment(ctx context.Context, arg db.CreateSubscriptionPaymentParams) (db.SubscriptionPayment, error) {
	sp, err := r.q.CreateSubscriptionPayment(ctx, arg)
	if err != nil {
		return db.SubscriptionPayment{}, mapWriteErr(err, "subscription_payment")
	}
	return sp, nil
}

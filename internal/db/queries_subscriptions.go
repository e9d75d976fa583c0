package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) GetStoreSubscription(ctx context.Context, storeID uuid.UUID) (StoreSubscription, bool, error) {
	var s StoreSubscription
	err := q.db.QueryRow(ctx, `
		SELECT store_id, currency, value, wallet_address, trial_start_date, status, created_at, updated_at
		FROM store_subscriptions WHERE store_id = $1
	`, storeID).Scan(&s.StoreID, &s.Currency, &s.Value, &s.WalletAddress, &s.TrialStartDate, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		mapped := mapErr(err)
		if mapped == ErrNotFound {
			return StoreSubscription{}, false, nil
		}
		return StoreSubscription{}, false, mapped
	}
	return s, true, nil
}

// UpsertStoreSubscriptionTrial creates the trial row for a new store, or is a
// no-op if one already exists — every store gets exactly one free trial.
func (q *Queries) UpsertStoreSubscriptionTrial(ctx context.Context, storeID uuid.UUID, currency string, trialStart pgtype.Timestamptz) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO store_subscriptions (store_id, currency, value, wallet_address, trial_start_date, status, created_at, updated_at)
		VALUES ($1, $2, 0, NULL, $3, $4, now(), now())
		ON CONFLICT (store_id) DO NOTHING
	`, storeID, currency, trialStart, StoreSubscriptionStatusTrial)
	return mapErr(err)
}

// UpdateStoreSubscription sets a store's billing terms and/or status,
// backing PUT /v1/stores/{id}/subscription (§6) — e.g. moving a store out of
// Trial into Paid once an operator assigns a price, or into Free.
func (q *Queries) UpdateStoreSubscription(ctx context.Context, arg UpdateStoreSubscriptionParams) (StoreSubscription, error) {
	var s StoreSubscription
	err := q.db.QueryRow(ctx, `
		UPDATE store_subscriptions
		SET currency = $2, value = $3, wallet_address = $4, status = $5, updated_at = now()
		WHERE store_id = $1
		RETURNING store_id, currency, value, wallet_address, trial_start_date, status, created_at, updated_at
	`, arg.StoreID, arg.Currency, arg.Value, arg.WalletAddress, arg.Status).
		Scan(&s.StoreID, &s.Currency, &s.Value, &s.WalletAddress, &s.TrialStartDate, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return StoreSubscription{}, mapErr(err)
	}
	return s, nil
}

func (q *Queries) CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) (Subscription, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO subscriptions (id, store_id, published_base_products_qty, subscription_payment_id, created_at)
		VALUES ($1, $2, $3, NULL, now())
		RETURNING id, store_id, published_base_products_qty, subscription_payment_id, created_at
	`, arg.ID, arg.StoreID, arg.PublishedBaseProductsQty)
	var s Subscription
	var paymentID pgtype.UUID
	err := row.Scan(&s.ID, &s.StoreID, &s.PublishedBaseProductsQty, &paymentID, &s.CreatedAt)
	s.SubscriptionPaymentID = paymentID
	if err != nil {
		return Subscription{}, mapErr(err)
	}
	return s, nil
}

// ListUnpaidSubscriptionsOlderThan returns subscriptions still waiting for a
// payment to be attached, created before cutoff — the billing run's
// candidate set (§4.9 pay_subscriptions).
func (q *Queries) ListUnpaidSubscriptionsOlderThan(ctx context.Context, cutoff pgtype.Timestamptz) ([]Subscription, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, store_id, published_base_products_qty, subscription_payment_id, created_at
		FROM subscriptions
		WHERE subscription_payment_id IS NULL AND created_at <= $1
		ORDER BY created_at
	`, cutoff)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []Subscription
	for rows.Next() {
		var s Subscription
		var paymentID pgtype.UUID
		if err := rows.Scan(&s.ID, &s.StoreID, &s.PublishedBaseProductsQty, &paymentID, &s.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		s.SubscriptionPaymentID = paymentID
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

func (q *Queries) MarkSubscriptionPaid(ctx context.Context, id uuid.UUID, subscriptionPaymentID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE subscriptions SET subscription_payment_id = $1 WHERE id = $2
	`, subscriptionPaymentID, id)
	return mapErr(err)
}

func (q *Queries) CreateSubscriptionPayment(ctx context.Context, arg CreateSubscriptionPaymentParams) (SubscriptionPayment, error) {
	var sp SubscriptionPayment
	err := q.db.QueryRow(ctx, `
		INSERT INTO subscription_payments (id, store_id, amount, currency, charge_id, transaction_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, store_id, amount, currency, charge_id, transaction_id, status, created_at
	`, arg.ID, arg.StoreID, arg.Amount, arg.Currency, arg.ChargeID, arg.TransactionID, arg.Status).
		Scan(&sp.ID, &sp.StoreID, &sp.Amount, &sp.Currency, &sp.ChargeID, &sp.TransactionID, &sp.Status, &sp.CreatedAt)
	if err != nil {
		return SubscriptionPayment{}, mapErr(err)
	}
	return sp, nil
}

package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// CreatePayout inserts the payout row and its order_payouts join rows in one
// statement group so a payout and its order links are never observed
// half-written (§4.8: a payout covers a fixed, immutable set of orders).
func (q *Queries) CreatePayout(ctx context.Context, arg CreatePayoutParams, orderIDs []uuid.UUID) (Payout, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO payouts (id, gross_amount, net_amount, currency, wallet_address, blockchain_fee, user_id, status, initiated_at, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, now())
		RETURNING id, gross_amount, net_amount, currency, wallet_address, blockchain_fee, user_id, status, initiated_at, completed_at, created_at
	`, arg.ID, arg.GrossAmount, arg.NetAmount, arg.Currency, arg.WalletAddress, arg.BlockchainFee, arg.UserID, arg.Status, arg.InitiatedAt)
	payout, err := scanPayout(row)
	if err != nil {
		return Payout{}, err
	}
	for _, orderID := range orderIDs {
		if _, err := q.db.Exec(ctx, `INSERT INTO order_payouts (payout_id, order_id) VALUES ($1, $2)`, payout.ID, orderID); err != nil {
			return Payout{}, mapErr(err)
		}
	}
	return payout, nil
}

func (q *Queries) GetPayout(ctx context.Context, id uuid.UUID) (Payout, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, gross_amount, net_amount, currency, wallet_address, blockchain_fee, user_id, status, initiated_at, completed_at, created_at
		FROM payouts WHERE id = $1
	`, id)
	return scanPayout(row)
}

func (q *Queries) ListPayoutsByStore(ctx context.Context, storeID uuid.UUID) ([]Payout, error) {
	rows, err := q.db.Query(ctx, `
		SELECT p.id, p.gross_amount, p.net_amount, p.currency, p.wallet_address, p.blockchain_fee, p.user_id, p.status, p.initiated_at, p.completed_at, p.created_at
		FROM payouts p
		JOIN order_payouts op ON op.payout_id = p.id
		JOIN orders o ON o.id = op.order_id
		WHERE o.store_id = $1
		GROUP BY p.id
		ORDER BY p.created_at
	`, storeID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

// OrdersHavePayout reports whether any of the given orders already belong to
// a payout, the idempotency guard behind pay_out_to_seller (§4.8, §8
// property: a paid-to-seller order is never paid out twice).
func (q *Queries) OrdersHavePayout(ctx context.Context, orderIDs []uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM order_payouts WHERE order_id = ANY($1))
	`, orderIDs).Scan(&exists)
	return exists, mapErr(err)
}

// ListOrderIDsByPayout returns the fixed set of orders a payout covers, the
// set HandlePayoutInitiated transitions to PaidToSeller once the transfer
// settles.
func (q *Queries) ListOrderIDsByPayout(ctx context.Context, payoutID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT order_id FROM order_payouts WHERE payout_id = $1`, payoutID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr(err)
		}
		ids = append(ids, id)
	}
	return ids, mapErr(rows.Err())
}

func (q *Queries) CompletePayout(ctx context.Context, id uuid.UUID, completedAt pgtype.Timestamptz) error {
	_, err := q.db.Exec(ctx, `
		UPDATE payouts SET status = $1, completed_at = $2 WHERE id = $3
	`, PayoutStatusCompleted, completedAt, id)
	return mapErr(err)
}

func scanPayout(row interface {
	Scan(dest ...interface{}) error
}) (Payout, error) {
	var p Payout
	err := row.Scan(&p.ID, &p.GrossAmount, &p.NetAmount, &p.Currency, &p.WalletAddress, &p.BlockchainFee,
		&p.UserID, &p.Status, &p.InitiatedAt, &p.CompletedAt, &p.CreatedAt)
	if err != nil {
		return Payout{}, mapErr(err)
	}
	return p, nil
}

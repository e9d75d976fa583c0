package db

import (
	"context"

	"github.com/google/uuid"
)

func (q *Queries) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]UserRole, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, role, data FROM user_roles WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []UserRole
	for rows.Next() {
		var r UserRole
		if err := rows.Scan(&r.ID, &r.UserID, &r.Role, &r.Data); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, r)
	}
	return out, mapErr(rows.Err())
}

func (q *Queries) CreateUserRole(ctx context.Context, arg CreateUserRoleParams) (UserRole, error) {
	var r UserRole
	err := q.db.QueryRow(ctx, `
		INSERT INTO user_roles (id, user_id, role, data) VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, role, data
	`, arg.ID, arg.UserID, arg.Role, arg.Data).Scan(&r.ID, &r.UserID, &r.Role, &r.Data)
	if err != nil {
		return UserRole{}, mapErr(err)
	}
	return r, nil
}

func (q *Queries) DeleteUserRole(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM user_roles WHERE id = $1`, id)
	return mapErr(err)
}

func (q *Queries) DeleteUserRolesByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	return mapErr(err)
}

// GetInvoiceOwner resolves an invoice to its buyer, the ownership check for
// the Owned scope on the Invoice resource.
func (q *Queries) GetInvoiceOwner(ctx context.Context, invoiceID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := q.db.QueryRow(ctx, `SELECT buyer_user_id FROM invoices WHERE id = $1`, invoiceID).Scan(&ownerID)
	if err != nil {
		return uuid.UUID{}, mapErr(err)
	}
	return ownerID, nil
}

// GetOrderStoreID resolves an order to its store, the ownership check behind
// the StoreManager role's Owned scope on Fee/Payout/BillingInfo/
// StoreSubscription (all of which join through orders to a store_id).
func (q *Queries) GetOrderStoreID(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	var storeID uuid.UUID
	err := q.db.QueryRow(ctx, `SELECT store_id FROM orders WHERE id = $1`, orderID).Scan(&storeID)
	if err != nil {
		return uuid.UUID{}, mapErr(err)
	}
	return storeID, nil
}

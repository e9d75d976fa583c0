package db

import (
	"context"

	"github.com/google/uuid"
)

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, `
		INSERT INTO customers (id, user_id, email, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, user_id, email, created_at, updated_at
	`, arg.ID, arg.UserID, arg.Email).Scan(&c.ID, &c.UserID, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, mapErr(err)
	}
	return c, nil
}

func (q *Queries) GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (Customer, bool, error) {
	var c Customer
	err := q.db.QueryRow(ctx, `
		SELECT id, user_id, email, created_at, updated_at FROM customers WHERE user_id = $1
	`, userID).Scan(&c.ID, &c.UserID, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		mapped := mapErr(err)
		if mapped == ErrNotFound {
			return Customer{}, false, nil
		}
		return Customer{}, false, mapped
	}
	return c, true, nil
}

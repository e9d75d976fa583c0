package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (id, invoice_id, store_id, seller_currency, total_amount, cashback_amount, state, stripe_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())
		RETURNING id, invoice_id, store_id, seller_currency, total_amount, cashback_amount, state, stripe_fee, created_at, updated_at
	`, arg.ID, arg.InvoiceID, arg.StoreID, arg.SellerCurrency, arg.TotalAmount, arg.CashbackAmount, arg.State)
	return scanOrder(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, invoice_id, store_id, seller_currency, total_amount, cashback_amount, state, stripe_fee, created_at, updated_at
		FROM orders WHERE id = $1
	`, id)
	return scanOrder(row)
}

func (q *Queries) ListOrdersByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, invoice_id, store_id, seller_currency, total_amount, cashback_amount, state, stripe_fee, created_at, updated_at
		FROM orders WHERE invoice_id = $1 ORDER BY created_at
	`, invoiceID)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectOrders(rows)
}

func (q *Queries) ListOrdersByStoreAndState(ctx context.Context, storeID uuid.UUID, state string) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, invoice_id, store_id, seller_currency, total_amount, cashback_amount, state, stripe_fee, created_at, updated_at
		FROM orders WHERE store_id = $1 AND state = $2 ORDER BY created_at
	`, storeID, state)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectOrders(rows)
}

func (q *Queries) UpdateOrderState(ctx context.Context, id uuid.UUID, state string) error {
	_, err := q.db.Exec(ctx, `UPDATE orders SET state = $1, updated_at = now() WHERE id = $2`, state, id)
	return mapErr(err)
}

func (q *Queries) UpdateOrderStripeFee(ctx context.Context, id uuid.UUID, fee pgtype.Numeric) error {
	_, err := q.db.Exec(ctx, `UPDATE orders SET stripe_fee = $1, updated_at = now() WHERE id = $2`, fee, id)
	return mapErr(err)
}

// GetActiveExchangeRate returns the order's current rate, or ErrNotFound if
// none is active (§4.1: at most one active rate per order at any time).
func (q *Queries) GetActiveExchangeRate(ctx context.Context, orderID uuid.UUID) (OrderExchangeRate, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, order_id, exchange_id, exchange_rate, status, created_at
		FROM order_exchange_rates WHERE order_id = $1 AND status = $2
	`, orderID, ExchangeRateStatusActive)
	return scanExchangeRate(row)
}

func (q *Queries) ExpireActiveExchangeRate(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE order_exchange_rates SET status = $1 WHERE order_id = $2 AND status = $3
	`, ExchangeRateStatusExpired, orderID, ExchangeRateStatusActive)
	return mapErr(err)
}

func (q *Queries) AddNewActiveExchangeRate(ctx context.Context, arg AddExchangeRateParams) (OrderExchangeRate, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_exchange_rates (id, order_id, exchange_id, exchange_rate, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, order_id, exchange_id, exchange_rate, status, created_at
	`, arg.ID, arg.OrderID, arg.ExchangeID, arg.ExchangeRate, ExchangeRateStatusActive)
	return scanExchangeRate(row)
}

func scanOrder(row interface {
	Scan(dest ...interface{}) error
}) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.InvoiceID, &o.StoreID, &o.SellerCurrency, &o.TotalAmount, &o.CashbackAmount,
		&o.State, &o.StripeFee, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, mapErr(err)
	}
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, mapErr(rows.Err())
}

func scanExchangeRate(row interface {
	Scan(dest ...interface{}) error
}) (OrderExchangeRate, error) {
	var r OrderExchangeRate
	var exchangeID pgtype.UUID
	err := row.Scan(&r.ID, &r.OrderID, &exchangeID, &r.ExchangeRate, &r.Status, &r.CreatedAt)
	r.ExchangeID = exchangeID
	if err != nil {
		return OrderExchangeRate{}, mapErr(err)
	}
	return r, nil
}

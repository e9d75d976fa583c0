package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) CreatePaymentIntent(ctx context.Context, arg CreatePaymentIntentParams) (PaymentIntent, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO payment_intents (id, amount, amount_received, currency, status, client_secret, charge_id,
			last_payment_error_message, invoice_id, fee_id, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $5, NULL, NULL, NULL, NULL, now(), now())
		RETURNING id, amount, currency, status, client_secret, invoice_id, fee_id, created_at, updated_at
	`, arg.ID, arg.Amount, arg.Currency, arg.Status, arg.ClientSecret)
	return scanPaymentIntent(row)
}

func (q *Queries) GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, amount, currency, status, client_secret, invoice_id, fee_id, created_at, updated_at
		FROM payment_intents WHERE id = $1
	`, id)
	return scanPaymentIntent(row)
}

func (q *Queries) UpdatePaymentIntentChargeID(ctx context.Context, id string, chargeID pgtype.Text, status string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE payment_intents SET status = $1, charge_id = $2, updated_at = now() WHERE id = $3
	`, status, chargeID, id)
	return mapErr(err)
}

func (q *Queries) LinkPaymentIntentToInvoice(ctx context.Context, intentID string, invoiceID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE payment_intents SET invoice_id = $1 WHERE id = $2`, invoiceID, intentID)
	return mapErr(err)
}

func (q *Queries) LinkPaymentIntentToFee(ctx context.Context, intentID string, feeID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE payment_intents SET fee_id = $1 WHERE id = $2`, feeID, intentID)
	return mapErr(err)
}

func (q *Queries) GetInvoiceIDForPaymentIntent(ctx context.Context, intentID string) (uuid.UUID, bool, error) {
	var invoiceID pgtype.UUID
	err := q.db.QueryRow(ctx, `SELECT invoice_id FROM payment_intents WHERE id = $1`, intentID).Scan(&invoiceID)
	if err != nil {
		return uuid.UUID{}, false, mapErr(err)
	}
	if !invoiceID.Valid {
		return uuid.UUID{}, false, nil
	}
	return uuid.UUID(invoiceID.Bytes), true, nil
}

// GetPaymentIntentIDForInvoice finds the PaymentIntent linked to an invoice,
// the reverse direction of GetInvoiceIDForPaymentIntent — the fiat capture
// and refund paths locate the intent starting from the order's invoice.
func (q *Queries) GetPaymentIntentIDForInvoice(ctx context.Context, invoiceID uuid.UUID) (string, bool, error) {
	var id pgtype.Text
	err := q.db.QueryRow(ctx, `SELECT id FROM payment_intents WHERE invoice_id = $1`, invoiceID).Scan(&id)
	if err != nil {
		return "", false, mapErr(err)
	}
	if !id.Valid {
		return "", false, nil
	}
	return id.String, true, nil
}

func (q *Queries) GetFeeIDForPaymentIntent(ctx context.Context, intentID string) (uuid.UUID, bool, error) {
	var feeID pgtype.UUID
	err := q.db.QueryRow(ctx, `SELECT fee_id FROM payment_intents WHERE id = $1`, intentID).Scan(&feeID)
	if err != nil {
		return uuid.UUID{}, false, mapErr(err)
	}
	if !feeID.Valid {
		return uuid.UUID{}, false, nil
	}
	return uuid.UUID(feeID.Bytes), true, nil
}

func (q *Queries) CreateFee(ctx context.Context, arg CreateFeeParams) (Fee, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO fees (id, order_id, amount, currency, status, charge_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULL, NULL, now(), now())
		RETURNING id, order_id, amount, currency, status, charge_id, metadata, created_at, updated_at
	`, arg.ID, arg.OrderID, arg.Amount, arg.Currency, arg.Status)
	return scanFee(row)
}

func (q *Queries) GetFee(ctx context.Context, id uuid.UUID) (Fee, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, order_id, amount, currency, status, charge_id, metadata, created_at, updated_at
		FROM fees WHERE id = $1
	`, id)
	return scanFee(row)
}

func (q *Queries) ListFeesByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]Fee, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, amount, currency, status, charge_id, metadata, created_at, updated_at
		FROM fees WHERE order_id = ANY($1) ORDER BY created_at
	`, orderIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []Fee
	for rows.Next() {
		f, err := scanFee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, mapErr(rows.Err())
}

func (q *Queries) UpdateFeeStatus(ctx context.Context, id uuid.UUID, status string, chargeID pgtype.Text) error {
	_, err := q.db.Exec(ctx, `
		UPDATE fees SET status = $1, charge_id = $2, updated_at = now() WHERE id = $3
	`, status, chargeID, id)
	return mapErr(err)
}

func scanPaymentIntent(row interface {
	Scan(dest ...interface{}) error
}) (PaymentIntent, error) {
	var p PaymentIntent
	err := row.Scan(&p.ID, &p.Amount, &p.Currency, &p.Status, &p.ClientSecret, &p.InvoiceID, &p.FeeID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return PaymentIntent{}, mapErr(err)
	}
	return p, nil
}

func scanFee(row interface {
	Scan(dest ...interface{}) error
}) (Fee, error) {
	var f Fee
	err := row.Scan(&f.ID, &f.OrderID, &f.Amount, &f.Currency, &f.Status, &f.ChargeID, &f.Metadata, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return Fee{}, mapErr(err)
	}
	return f, nil
}

package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO invoices (id, buyer_user_id, buyer_currency, account_id, amount_captured, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, now(), now())
		RETURNING id, buyer_user_id, buyer_currency, account_id, amount_captured, final_amount_paid,
			final_cashback_amount, paid_at, status, created_at, updated_at
	`, arg.ID, arg.BuyerUserID, arg.BuyerCurrency, arg.AccountID, arg.Status)
	return scanInvoice(row)
}

func (q *Queries) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, buyer_user_id, buyer_currency, account_id, amount_captured, final_amount_paid,
			final_cashback_amount, paid_at, status, created_at, updated_at
		FROM invoices WHERE id = $1
	`, id)
	return scanInvoice(row)
}

// GetInvoiceForUpdate locks the invoice row, required before reading
// amount_captured to apply a credit (§4.1 credit application runs inside one
// transaction per invoice, making it linearizable per §5).
func (q *Queries) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, buyer_user_id, buyer_currency, account_id, amount_captured, final_amount_paid,
			final_cashback_amount, paid_at, status, created_at, updated_at
		FROM invoices WHERE id = $1 FOR UPDATE
	`, id)
	return scanInvoice(row)
}

func (q *Queries) UpdateInvoiceAmountCaptured(ctx context.Context, id uuid.UUID, amountCaptured pgtype.Numeric) error {
	_, err := q.db.Exec(ctx, `UPDATE invoices SET amount_captured = $1, updated_at = now() WHERE id = $2`, amountCaptured, id)
	return mapErr(err)
}

func (q *Queries) MarkInvoicePaid(ctx context.Context, id uuid.UUID, finalAmountPaid, finalCashbackAmount pgtype.Numeric, paidAt pgtype.Timestamptz) error {
	_, err := q.db.Exec(ctx, `
		UPDATE invoices
		SET status = $1, final_amount_paid = $2, final_cashback_amount = $3, paid_at = $4, updated_at = now()
		WHERE id = $5
	`, InvoiceStatusPaid, finalAmountPaid, finalCashbackAmount, paidAt, id)
	return mapErr(err)
}

// UnlinkInvoiceAccount clears an invoice's account_id once its crypto
// account has been drained back to the system account (§4.7).
func (q *Queries) UnlinkInvoiceAccount(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE invoices SET account_id = NULL, updated_at = now() WHERE id = $1`, id)
	return mapErr(err)
}

// GetInvoiceIDForAccount resolves the invoice currently linked to a crypto
// account, the direction the inbound-transfer callback needs: the
// collaborator only reports an account id and amount, never the invoice.
func (q *Queries) GetInvoiceIDForAccount(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `SELECT id FROM invoices WHERE account_id = $1`, accountID).Scan(&id)
	if err != nil {
		mapped := mapErr(err)
		if errors.Is(mapped, ErrNotFound) {
			return uuid.UUID{}, false, nil
		}
		return uuid.UUID{}, false, mapped
	}
	return id, true, nil
}

func (q *Queries) GetAmountReceived(ctx context.Context, transactionID uuid.UUID) (AmountReceived, error) {
	var ar AmountReceived
	err := q.db.QueryRow(ctx, `
		SELECT transaction_id, invoice_id, amount_received, created_at FROM amounts_received WHERE transaction_id = $1
	`, transactionID).Scan(&ar.TransactionID, &ar.InvoiceID, &ar.AmountReceived, &ar.CreatedAt)
	if err != nil {
		return AmountReceived{}, mapErr(err)
	}
	return ar, nil
}

func (q *Queries) InsertAmountReceived(ctx context.Context, arg InsertAmountReceivedParams) (AmountReceived, error) {
	var ar AmountReceived
	err := q.db.QueryRow(ctx, `
		INSERT INTO amounts_received (transaction_id, invoice_id, amount_received, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING transaction_id, invoice_id, amount_received, created_at
	`, arg.TransactionID, arg.InvoiceID, arg.AmountReceived).
		Scan(&ar.TransactionID, &ar.InvoiceID, &ar.AmountReceived, &ar.CreatedAt)
	if err != nil {
		return AmountReceived{}, mapErr(err)
	}
	return ar, nil
}

func scanInvoice(row interface {
	Scan(dest ...interface{}) error
}) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.BuyerUserID, &inv.BuyerCurrency, &inv.AccountID, &inv.AmountCaptured,
		&inv.FinalAmountPaid, &inv.FinalCashbackAmount, &inv.PaidAt, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, mapErr(err)
	}
	return inv, nil
}

package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO accounts (id, currency, is_pooled, is_system, system_name, wallet_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, currency, is_pooled, is_system, system_name, wallet_address, invoice_id, created_at
	`, arg.ID, arg.Currency, arg.IsPooled, arg.IsSystem, arg.SystemName, arg.WalletAddress)
	return scanAccount(row)
}

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, currency, is_pooled, is_system, system_name, wallet_address, invoice_id, created_at
		FROM accounts WHERE id = $1
	`, id)
	return scanAccount(row)
}

// GetFreePooledAccount returns one pooled account of the given currency not
// currently linked to any invoice, locking the row so two concurrent
// allocations never hand out the same account.
func (q *Queries) GetFreePooledAccount(ctx context.Context, currency string) (Account, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, currency, is_pooled, is_system, system_name, wallet_address, invoice_id, created_at
		FROM accounts
		WHERE currency = $1 AND is_pooled = true AND invoice_id IS NULL
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, currency)
	return scanAccount(row)
}

func (q *Queries) GetSystemAccount(ctx context.Context, currency string, systemName string) (Account, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, currency, is_pooled, is_system, system_name, wallet_address, invoice_id, created_at
		FROM accounts WHERE currency = $1 AND is_system = true AND system_name = $2
	`, currency, systemName)
	return scanAccount(row)
}

// GetAccountByWalletAddress resolves the collaborator-internal account id
// backing an external wallet address, the step a store's subscription wallet
// reference needs before an internal transfer can be issued (§4.9).
func (q *Queries) GetAccountByWalletAddress(ctx context.Context, walletAddress string) (Account, bool, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, currency, is_pooled, is_system, system_name, wallet_address, invoice_id, created_at
		FROM accounts WHERE wallet_address = $1
	`, walletAddress)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, false, nil
		}
		return Account{}, false, err
	}
	return a, true, nil
}

func (q *Queries) CountPooledAccounts(ctx context.Context, currency string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM accounts WHERE currency = $1 AND is_pooled = true AND invoice_id IS NULL
	`, currency).Scan(&count)
	return count, mapErr(err)
}

func (q *Queries) LinkAccountToInvoice(ctx context.Context, accountID, invoiceID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE accounts SET invoice_id = $1 WHERE id = $2`, invoiceID, accountID)
	return mapErr(err)
}

func (q *Queries) UnlinkAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE accounts SET invoice_id = NULL WHERE id = $1`, accountID)
	return mapErr(err)
}

func scanAccount(row interface {
	Scan(dest ...interface{}) error
}) (Account, error) {
	var a Account
	var invoiceID pgtype.UUID
	err := row.Scan(&a.ID, &a.Currency, &a.IsPooled, &a.IsSystem, &a.SystemName, &a.WalletAddress, &invoiceID, &a.CreatedAt)
	a.InvoiceID = invoiceID
	if err != nil {
		return Account{}, mapErr(err)
	}
	return a, nil
}

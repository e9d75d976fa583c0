package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// AccountRepo has no Owned scope of its own in the role table (§4.3 names no
// grant for Account outside Superuser) — it is only ever driven internally
// by the account-pool and invoice services, never directly by a caller's ACL
// check, so its methods take no Principal.
type AccountRepo struct {
	q   db.Querier
	acl *authz.ACL
}

func (r *AccountRepo) Create(ctx context.Context, arg db.CreateAccountParams) (db.Account, error) {
	a, err := r.q.CreateAccount(ctx, arg)
	if err != nil {
		return db.Account{}, mapWriteErr(err, "account")
	}
	return a, nil
}

func (r *AccountRepo) Get(ctx context.Context, id uuid.UUID) (db.Account, error) {
	a, err := r.q.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Account{}, svcerr.NotFound("account not found")
		}
		return db.Account{}, svcerr.Internal(err)
	}
	return a, nil
}

// AllocateFreePooled locks and returns one free pooled account of currency;
// must run inside the caller's transaction so the lock is held until the
// invoice linking it commits.
func (r *AccountRepo) AllocateFreePooled(ctx context.Context, currency string) (db.Account, error) {
	a, err := r.q.GetFreePooledAccount(ctx, currency)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Account{}, svcerr.NotFound("no free pooled account available for currency " + currency)
		}
		return db.Account{}, svcerr.Internal(err)
	}
	return a, nil
}

func (r *AccountRepo) GetSystem(ctx context.Context, currency, systemName string) (db.Account, error) {
	a, err := r.q.GetSystemAccount(ctx, currency, systemName)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Account{}, svcerr.NotFound("system account not found")
		}
		return db.Account{}, svcerr.Internal(err)
	}
	return a, nil
}

// GetByWalletAddress resolves the internal account behind an external wallet
// address, e.g. a store's subscription payment wallet, before an internal
// transfer to or from it can be issued (§4.9).
func (r *AccountRepo) GetByWalletAddress(ctx context.Context, walletAddress string) (db.Account, error) {
	a, ok, err := r.q.GetAccountByWalletAddress(ctx, walletAddress)
	if err != nil {
		return db.Account{}, svcerr.Internal(err)
	}
	if !ok {
		return db.Account{}, svcerr.NotFound("no account registered for this wallet address")
	}
	return a, nil
}

func (r *AccountRepo) CountPooled(ctx context.Context, currency string) (int64, error) {
	n, err := r.q.CountPooledAccounts(ctx, currency)
	if err != nil {
		return 0, svcerr.Internal(err)
	}
	return n, nil
}

func (r *AccountRepo) LinkToInvoice(ctx context.Context, accountID, invoiceID uuid.UUID) error {
	if err := r.q.LinkAccountToInvoice(ctx, accountID, invoiceID); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

func (r *AccountRepo) Unlink(ctx context.Context, accountID uuid.UUID) error {
	if err := r.q.UnlinkAccount(ctx, accountID); err != nil {
		return svcerr.Internal(err)
	}
	return nil
}

// Package account implements system-account bootstrap, pooled-account
// allocation, and balance draining — the account/payout pipeline's account
// half (§4.7).
package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/cyphera/billing-core/internal/clients/cryptopay"
	"github.com/cyphera/billing-core/internal/config"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/logger"
	"github.com/cyphera/billing-core/internal/money"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/svcerr"
)

type Service struct {
	accounts *repo.AccountRepo
	payments cryptopay.Client
	cfg      config.PaymentsConfig
}

func New(accounts *repo.AccountRepo, payments cryptopay.Client, cfg config.PaymentsConfig) *Service {
	return &Service{accounts: accounts, payments: payments, cfg: cfg}
}

type systemAccountSpec struct {
	currency money.Currency
	name     string
	id       string
}

func (s *Service) systemAccountSpecs() []systemAccountSpec {
	return []systemAccountSpec{
		{money.STQ, "Main", s.cfg.Accounts.MainSTQ},
		{money.ETH, "Main", s.cfg.Accounts.MainETH},
		{money.BTC, "Main", s.cfg.Accounts.MainBTC},
		{money.STQ, "Cashback", s.cfg.Accounts.CashbackSTQ},
	}
}

// InitSystemAccounts ensures every configured system account exists locally,
// creating it at the collaborator first if it doesn't (§4.7).
func (s *Service) InitSystemAccounts(ctx context.Context) error {
	for _, spec := range s.systemAccountSpecs() {
		if spec.id == "" {
			continue
		}
		id, err := uuid.Parse(spec.id)
		if err != nil {
			return svcerr.Internal(fmt.Errorf("account: invalid configured system account id %q: %w", spec.id, err))
		}
		if _, err := s.accounts.Get(ctx, id); err == nil {
			continue
		}
		walletAddress, err := s.payments.CreateAccount(ctx, id, spec.currency)
		if err != nil {
			return svcerr.TransientExternal(err)
		}
		_, err = s.accounts.Create(ctx, db.CreateAccountParams{
			ID:            id,
			Currency:      string(spec.currency),
			IsPooled:      false,
			IsSystem:      true,
			SystemName:    pgtype.Text{String: spec.name, Valid: true},
			WalletAddress: walletAddress,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// InitAccountPools tops every crypto currency's pool up to MinPooledAccounts.
func (s *Service) InitAccountPools(ctx context.Context) error {
	for _, currency := range money.AllCurrencies {
		if !currency.IsCrypto() {
			continue
		}
		count, err := s.accounts.CountPooled(ctx, string(currency))
		if err != nil {
			return err
		}
		for i := int64(0); i < int64(s.cfg.MinPooledAccounts)-count; i++ {
			if err := s.createPooledAccount(ctx, currency); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) createPooledAccount(ctx context.Context, currency money.Currency) error {
	id := uuid.New()
	walletAddress, err := s.payments.CreateAccount(ctx, id, currency)
	if err != nil {
		return svcerr.TransientExternal(err)
	}
	_, err = s.accounts.Create(ctx, db.CreateAccountParams{
		ID:            id,
		Currency:      string(currency),
		IsPooled:      true,
		WalletAddress: walletAddress,
	})
	return err
}

// AllocatePooledAccount returns a free pooled account of currency, creating
// one on demand if the pool is exhausted (§4.7).
func (s *Service) AllocatePooledAccount(ctx context.Context, currency money.Currency) (db.Account, error) {
	acc, err := s.accounts.AllocateFreePooled(ctx, string(currency))
	if err == nil {
		return acc, nil
	}
	se := svcerr.As(err)
	if se.Kind != svcerr.KindNotFound {
		return db.Account{}, err
	}
	if err := s.createPooledAccount(ctx, currency); err != nil {
		return db.Account{}, err
	}
	return s.accounts.AllocateFreePooled(ctx, string(currency))
}

// DrainAccount moves an account's full balance to the currency's Main system
// account, leaving unlinking from the invoice to the caller (§4.7). The
// transfer id is derived from the account id so repeated drains of the same
// account are idempotent at the collaborator.
func (s *Service) DrainAccount(ctx context.Context, accountID uuid.UUID) error {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	currency := money.Currency(acc.Currency)
	balance, err := s.payments.GetBalance(ctx, accountID)
	if err != nil {
		return svcerr.TransientExternal(err)
	}
	if balance.IsZero() {
		return nil
	}
	main, err := s.mainAccountFor(ctx, currency)
	if err != nil {
		return err
	}
	transferID := uuid.NewSHA1(accountID, []byte("drain"))
	if err := s.payments.InternalTransfer(ctx, transferID, accountID, main.ID, currency, balance); err != nil {
		return svcerr.TransientExternal(err)
	}
	logger.Info("account drained", zap.String("account_id", accountID.String()), zap.String("amount", balance.String()))
	return nil
}

func (s *Service) mainAccountFor(ctx context.Context, currency money.Currency) (db.Account, error) {
	return s.accounts.GetSystem(ctx, string(currency), "Main")
}

// Package payout implements the seller payout pipeline (§4.8): balance
// aggregation, payout calculation, and idempotent payout issuance.
package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/clients/cryptopay"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/eventstore"
	"github.com/cyphera/billing-core/internal/money"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// Service holds the pool directly (in addition to the ambient, pool-bound
// repos) so HandlePayoutInitiated can settle the transfer and the covered
// orders' PaidToSeller transition in one transaction.
type Service struct {
	pool     *pgxpool.Pool
	baseDB   *db.Queries
	repos    *repo.Repos
	payments cryptopay.Client
}

func New(pool *pgxpool.Pool, baseDB *db.Queries, repos *repo.Repos, payments cryptopay.Client) *Service {
	return &Service{pool: pool, baseDB: baseDB, repos: repos, payments: payments}
}

// GetBalance sums total_amount by currency over the store's orders awaiting
// payout (§4.8).
func (s *Service) GetBalance(ctx context.Context, p authz.Principal, storeID uuid.UUID) (map[money.Currency]money.Amount, error) {
	orders, err := s.repos.Orders.ListByStoreAndState(ctx, p, storeID, db.OrderStatePaymentToSellerNeeded)
	if err != nil {
		return nil, err
	}
	totals := make(map[money.Currency]money.Amount)
	for _, o := range orders {
		total, err := money.AmountFromNumeric(o.TotalAmount)
		if err != nil {
			return nil, svcerr.Internal(err)
		}
		currency := money.Currency(o.SellerCurrency)
		sum, ok := totals[currency].CheckedAdd(total)
		if !ok {
			return nil, svcerr.Internal(fmt.Errorf("payout: balance overflow for currency %s", currency))
		}
		totals[currency] = sum
	}
	return totals, nil
}

// CalculatePayout quotes the blockchain fee for paying currency out to
// walletAddress and returns gross/net amounts for the store's payable
// orders in that currency (§4.8).
func (s *Service) CalculatePayout(ctx context.Context, p authz.Principal, storeID uuid.UUID, currency money.Currency, walletAddress string) (gross, net, blockchainFee money.Amount, err error) {
	balances, err := s.GetBalance(ctx, p, storeID)
	if err != nil {
		return money.Amount{}, money.Amount{}, money.Amount{}, err
	}
	gross = balances[currency]
	if gross.IsZero() {
		return money.Amount{}, money.Amount{}, money.Amount{}, svcerr.ValidationMsg("no payable balance in " + string(currency))
	}
	blockchainFee, err = s.quoteBlockchainFee(ctx, currency, walletAddress)
	if err != nil {
		return money.Amount{}, money.Amount{}, money.Amount{}, err
	}
	net, ok := gross.CheckedSub(blockchainFee)
	if !ok {
		return money.Amount{}, money.Amount{}, money.Amount{}, svcerr.ValidationMsg("blockchain fee exceeds gross payout amount")
	}
	return gross, net, blockchainFee, nil
}

// quoteBlockchainFee asks the collaborator what it would charge to pay
// currency out to walletAddress, independent of any store's balance.
func (s *Service) quoteBlockchainFee(ctx context.Context, currency money.Currency, walletAddress string) (money.Amount, error) {
	fee, err := s.payments.PayoutTransfer(ctx, uuid.New(), uuid.Nil, currency, money.Zero(), walletAddress)
	if err != nil {
		return money.Amount{}, svcerr.TransientExternal(err)
	}
	return fee, nil
}

// PayOutToSeller validates the order set, computes gross/net, and issues the
// Payout + OrderPayout rows plus a PayoutInitiated event in one transaction.
// The event handler performs the actual transfer (§4.8).
func (s *Service) PayOutToSeller(ctx context.Context, p authz.Principal, orderIDs []uuid.UUID, userID uuid.UUID, currency money.Currency, walletAddress string) (db.Payout, error) {
	if len(orderIDs) == 0 {
		return db.Payout{}, svcerr.ValidationMsg("at least one order is required")
	}

	var gross money.Amount
	for _, id := range orderIDs {
		o, err := s.repos.Orders.Get(ctx, p, id)
		if err != nil {
			return db.Payout{}, err
		}
		if o.State != db.OrderStatePaymentToSellerNeeded {
			return db.Payout{}, svcerr.ValidationMsg("order " + id.String() + " is not awaiting payout")
		}
		if money.Currency(o.SellerCurrency) != currency {
			return db.Payout{}, svcerr.ValidationMsg("all orders in a payout must share one currency")
		}
		total, err := money.AmountFromNumeric(o.TotalAmount)
		if err != nil {
			return db.Payout{}, svcerr.Internal(err)
		}
		sum, ok := gross.CheckedAdd(total)
		if !ok {
			return db.Payout{}, svcerr.Internal(fmt.Errorf("payout: gross amount overflow"))
		}
		gross = sum
	}

	blockchainFee, err := s.quoteBlockchainFee(ctx, currency, walletAddress)
	if err != nil {
		return db.Payout{}, err
	}
	net, ok := gross.CheckedSub(blockchainFee)
	if !ok {
		return db.Payout{}, svcerr.ValidationMsg("blockchain fee exceeds gross payout amount")
	}

	grossNumeric := gross.ToNumeric()
	netNumeric := net.ToNumeric()
	feeNumeric := blockchainFee.ToNumeric()

	payoutID := uuid.New()
	payload, err := eventstore.MarshalPayoutInitiated(payoutID)
	if err != nil {
		return db.Payout{}, svcerr.Internal(err)
	}

	var created db.Payout
	err = db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		txRepos := s.repos.WithQuerier(s.baseDB.WithTx(tx))
		c, err := txRepos.Payouts.Create(ctx, db.CreatePayoutParams{
			ID:            payoutID,
			GrossAmount:   grossNumeric,
			NetAmount:     netNumeric,
			Currency:      string(currency),
			WalletAddress: pgtype.Text{String: walletAddress, Valid: true},
			BlockchainFee: feeNumeric,
			UserID:        userID,
			Status:        db.PayoutStatusProcessing,
			InitiatedAt:   pgtype.Timestamptz{Time: time.Now(), Valid: true},
		}, orderIDs)
		if err != nil {
			return err
		}
		if _, err := txRepos.Events.Add(ctx, payload); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return db.Payout{}, err
	}
	return created, nil
}

// HandlePayoutInitiated is the event handler backing PayoutInitiated: issue
// the external transfer, then mark the payout Completed and every order it
// covers PaidToSeller in one transaction, so GetBalance never double-counts
// an order the store has already been paid out for (§4.8, §8 property: a
// paid-to-seller order never again appears in a payable balance).
func (s *Service) HandlePayoutInitiated(ctx context.Context, payoutID uuid.UUID) error {
	p := authz.Principal{} // event-store handlers run with system authority
	payout, err := s.repos.Payouts.Get(ctx, p, payoutID)
	if err != nil {
		return err
	}
	net, err := money.AmountFromNumeric(payout.NetAmount)
	if err != nil {
		return svcerr.Internal(err)
	}
	currency := money.Currency(payout.Currency)
	mainAccount, err := s.repos.Accounts.GetSystem(ctx, string(currency), "Main")
	if err != nil {
		return err
	}
	walletAddress := payout.WalletAddress.String
	if _, err := s.payments.PayoutTransfer(ctx, payoutID, mainAccount.ID, currency, net, walletAddress); err != nil {
		return svcerr.TransientExternal(err)
	}

	orderIDs, err := s.repos.Payouts.ListOrderIDs(ctx, payoutID)
	if err != nil {
		return err
	}

	return db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		return completePayoutAndOrders(ctx, s.repos.WithQuerier(s.baseDB.WithTx(tx)), payoutID, orderIDs)
	})
}

// completePayoutAndOrders marks payoutID Completed and every order in
// orderIDs PaidToSeller against repos' bound querier. Factored out of
// HandlePayoutInitiated so it can run against any db.Querier, not only one
// bound to a live transaction.
func completePayoutAndOrders(ctx context.Context, repos *repo.Repos, payoutID uuid.UUID, orderIDs []uuid.UUID) error {
	if err := repos.Payouts.Complete(ctx, payoutID, pgtype.Timestamptz{Time: time.Now(), Valid: true}); err != nil {
		return err
	}
	for _, orderID := range orderIDs {
		if err := repos.Orders.UpdateState(ctx, orderID, db.OrderStatePaidToSeller); err != nil {
			return err
		}
	}
	return nil
}

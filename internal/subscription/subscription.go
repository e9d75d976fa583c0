// Package subscription implements store-subscription billing (§4.9): trial
// bootstrap for newly published stores and the periodic batch collection run
// that aggregates unpaid subscriptions per store and settles them on
// whichever rail the store's StoreSubscription is configured for.
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cyphera/billing-core/internal/clients/cardprocessor"
	"github.com/cyphera/billing-core/internal/clients/cryptopay"
	"github.com/cyphera/billing-core/internal/config"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/logger"
	"github.com/cyphera/billing-core/internal/money"
	"github.com/cyphera/billing-core/internal/notify"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/svcerr"

	"go.uber.org/zap"
)

type Service struct {
	repos    *repo.Repos
	payments cryptopay.Client
	cards    *cardprocessor.Client
	email    *notify.EmailClient
	cfg      config.SubscriptionConfig
}

func New(repos *repo.Repos, payments cryptopay.Client, cards *cardprocessor.Client, email *notify.EmailClient, cfg config.SubscriptionConfig) *Service {
	return &Service{repos: repos, payments: payments, cards: cards, email: email, cfg: cfg}
}

// StoreQuantity is one store's monthly published-product count, the unit
// create_subscriptions (§4.9) is invoked with by the external cron caller.
type StoreQuantity struct {
	StoreID                      uuid.UUID
	PublishedBaseProductsQuantity int64
}

// CreateSubscriptions upserts a Subscription row for each store's current
// billing cycle, bootstrapping the store's trial if it has none yet and
// skipping stores whose billing has been waived (§4.9: "skip if ... Free").
// Idempotent per calendar day per store: UpsertStoreSubscriptionTrial only
// ever inserts the trial row once, and CreateSubscription is called at most
// once per store per invocation, which the cron caller is expected to run
// at most once per day.
func (s *Service) CreateSubscriptions(ctx context.Context, stores []StoreQuantity) error {
	for _, sq := range stores {
		if err := s.createSubscriptionForStore(ctx, sq); err != nil {
			logger.Error("subscription: create_subscriptions failed for store",
				zap.String("store_id", sq.StoreID.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) createSubscriptionForStore(ctx context.Context, sq StoreQuantity) error {
	sub, ok, err := s.repos.Subscriptions.GetStoreSubscriptionInternal(ctx, sq.StoreID)
	if err != nil {
		return err
	}
	if !ok {
		if err := s.repos.Subscriptions.StartTrial(ctx, sq.StoreID, string(money.USD), pgtype.Timestamptz{Time: time.Now(), Valid: true}); err != nil {
			return err
		}
		sub, ok, err = s.repos.Subscriptions.GetStoreSubscriptionInternal(ctx, sq.StoreID)
		if err != nil {
			return err
		}
		if !ok {
			return svcerr.Internal(fmt.Errorf("subscription: store subscription not found immediately after trial bootstrap"))
		}
	}

	if sub.Status == db.StoreSubscriptionStatusFree {
		return nil
	}
	if sub.Status == db.StoreSubscriptionStatusTrial && !s.trialElapsed(sub) {
		return nil
	}

	_, err = s.repos.Subscriptions.Create(ctx, db.CreateSubscriptionParams{
		ID:                       uuid.New(),
		StoreID:                  sq.StoreID,
		PublishedBaseProductsQty: sq.PublishedBaseProductsQuantity,
	})
	return err
}

func (s *Service) trialElapsed(sub db.StoreSubscription) bool {
	if !sub.TrialStartDate.Valid {
		return true
	}
	deadline := sub.TrialStartDate.Time.AddDate(0, 0, s.cfg.TrialTimeDurationDays)
	return !time.Now().Before(deadline)
}

// PaySubscriptions collects every unpaid Subscription older than
// periodicity_days, aggregates them per store, and settles each store's
// total on its configured rail (§4.9). Failures are recorded with a
// SubscriptionPayment{status: Failed} row and a dunning-style notice rather
// than aborting the run, so one store's failure never blocks another's.
func (s *Service) PaySubscriptions(ctx context.Context) error {
	cutoff := pgtype.Timestamptz{
		Time:  time.Now().AddDate(0, 0, -s.cfg.PeriodicityDays),
		Valid: true,
	}
	unpaid, err := s.repos.Subscriptions.ListUnpaidOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	byStore := make(map[uuid.UUID][]db.Subscription)
	for _, sub := range unpaid {
		byStore[sub.StoreID] = append(byStore[sub.StoreID], sub)
	}

	for storeID, subs := range byStore {
		if err := s.payStore(ctx, storeID, subs); err != nil {
			logger.Error("subscription: pay_subscriptions failed for store",
				zap.String("store_id", storeID.String()), zap.Error(err))
		}
	}
	return nil
}

// payStore computes total = Σ quantity × store_subscription.value for one
// store's unpaid subscriptions and settles it on the configured rail.
func (s *Service) payStore(ctx context.Context, storeID uuid.UUID, subs []db.Subscription) error {
	storeSub, ok, err := s.repos.Subscriptions.GetStoreSubscriptionInternal(ctx, storeID)
	if err != nil {
		return err
	}
	if !ok {
		return svcerr.Internal(fmt.Errorf("subscription: no store_subscription row for store %s", storeID))
	}
	if storeSub.Status == db.StoreSubscriptionStatusFree {
		return nil
	}

	value, err := money.AmountFromNumeric(storeSub.Value)
	if err != nil {
		return svcerr.Internal(err)
	}
	currency := money.Currency(storeSub.Currency)

	var totalQty int64
	for _, sub := range subs {
		totalQty += sub.PublishedBaseProductsQty
	}
	total, ok := value.CheckedMul(money.NewFromUint64(uint64(totalQty)))
	if !ok {
		return svcerr.Internal(fmt.Errorf("subscription: total amount overflow for store %s", storeID))
	}

	paymentID := uuid.New()
	chargeID, transactionID, payErr := s.charge(ctx, storeID, currency, total, storeSub)

	status := db.SubscriptionPaymentStatusPaid
	if payErr != nil {
		status = db.SubscriptionPaymentStatusFailed
	}

	payment, err := s.repos.Subscriptions.CreatePayment(ctx, db.CreateSubscriptionPaymentParams{
		ID:            paymentID,
		StoreID:       storeID,
		Amount:        total.ToNumeric(),
		Currency:      string(currency),
		ChargeID:      pgtype.Text{String: chargeID, Valid: chargeID != ""},
		TransactionID: pgtype.Text{String: transactionID, Valid: transactionID != ""},
		Status:        status,
	})
	if err != nil {
		return err
	}

	if payErr != nil {
		s.notifyFailure(ctx, storeID, storeSub, payErr)
		return nil
	}

	for _, sub := range subs {
		if err := s.repos.Subscriptions.MarkPaid(ctx, sub.ID, payment.ID); err != nil {
			return err
		}
	}
	return nil
}

// charge settles total on the store's configured rail: a saved-card charge
// for fiat, an internal transfer from the store's subscription wallet into
// the currency's Main system account for crypto (§4.9). The store's owning
// user id doubles as its card-processor customer lookup key, since the
// distilled data model has no dedicated store-customer entity (an explicit
// decision recorded in DESIGN.md).
func (s *Service) charge(ctx context.Context, storeID uuid.UUID, currency money.Currency, total money.Amount, storeSub db.StoreSubscription) (chargeID, transactionID string, err error) {
	if currency.IsFiat() {
		customer, ok, err := s.repos.Customers.GetByUserIDInternal(ctx, storeID)
		if err != nil {
			return "", "", err
		}
		if !ok {
			return "", "", svcerr.ValidationMsg("no card-processor customer on file for store " + storeID.String())
		}
		id, err := s.cards.ChargeCustomer(ctx, total, currency, customer.ID)
		if err != nil {
			return "", "", svcerr.TransientExternal(err)
		}
		return id, "", nil
	}

	if !storeSub.WalletAddress.Valid || storeSub.WalletAddress.String == "" {
		return "", "", svcerr.ValidationMsg("store has no subscription wallet configured for " + string(currency))
	}
	sourceAccount, err := s.repos.Accounts.GetByWalletAddress(ctx, storeSub.WalletAddress.String)
	if err != nil {
		return "", "", err
	}
	mainAccount, err := s.repos.Accounts.GetSystem(ctx, string(currency), "Main")
	if err != nil {
		return "", "", err
	}
	transferID := uuid.New()
	if err := s.payments.InternalTransfer(ctx, transferID, sourceAccount.ID, mainAccount.ID, currency, total); err != nil {
		return "", "", svcerr.TransientExternal(err)
	}
	return "", transferID.String(), nil
}

func (s *Service) notifyFailure(ctx context.Context, storeID uuid.UUID, storeSub db.StoreSubscription, payErr error) {
	if s.email == nil {
		return
	}
	customer, ok, lookupErr := s.repos.Customers.GetByUserIDInternal(ctx, storeID)
	if lookupErr != nil || !ok || !customer.Email.Valid {
		return
	}
	s.email.SendSubscriptionPaymentFailed(ctx, customer.Email.String, storeID.String(), payErr.Error())
}

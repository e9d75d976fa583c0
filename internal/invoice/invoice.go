// Package invoice implements the invoice/order payment state machine
// (§4.1): invoice creation on both the crypto and fiat rails, crypto credit
// application, the fiat capturable-update callback, and the event-store
// handlers that carry an invoice from captured funds to a terminal Paid
// state with its orders and fee rows in place.
package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cyphera/billing-core/internal/account"
	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/clients/cardprocessor"
	"github.com/cyphera/billing-core/internal/clients/cryptopay"
	"github.com/cyphera/billing-core/internal/clients/orchestrator"
	"github.com/cyphera/billing-core/internal/config"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/eventstore"
	"github.com/cyphera/billing-core/internal/logger"
	"github.com/cyphera/billing-core/internal/money"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// Service implements the invoice/order payment state machine and the fiat
// and crypto rail's follow-up event handling, holding the pool directly (in
// addition to the ambient, pool-bound repos) so multi-statement operations
// can rebind to one transaction via db.WithTransaction.
type Service struct {
	pool         *pgxpool.Pool
	baseDB       *db.Queries
	repos        *repo.Repos
	acl          *authz.ACL
	payments     cryptopay.Client
	cards        *cardprocessor.Client
	orchestrator *orchestrator.Client
	accounts     *account.Service
	feeCfg       config.FeeConfig
}

func New(
	pool *pgxpool.Pool,
	baseDB *db.Queries,
	repos *repo.Repos,
	acl *authz.ACL,
	payments cryptopay.Client,
	cards *cardprocessor.Client,
	orch *orchestrator.Client,
	accounts *account.Service,
	feeCfg config.FeeConfig,
) *Service {
	return &Service{
		pool:         pool,
		baseDB:       baseDB,
		repos:        repos,
		acl:          acl,
		payments:     payments,
		cards:        cards,
		orchestrator: orch,
		accounts:     accounts,
		feeCfg:       feeCfg,
	}
}

// NewOrder is one line item of an invoice being created: a buyer-facing
// order against one store, quoted in the seller's own currency.
type NewOrder struct {
	ID             uuid.UUID
	StoreID        uuid.UUID
	SellerCurrency money.Currency
	TotalAmount    money.Amount
	CashbackAmount money.Amount
}

// CreateInvoice dispatches to the crypto or fiat rail by buyer currency and
// runs the whole creation sequence inside one transaction (§4.1).
func (s *Service) CreateInvoice(ctx context.Context, p authz.Principal, buyerUserID uuid.UUID, buyerCurrency money.Currency, orders []NewOrder) (db.Invoice, error) {
	if buyerUserID != p.UserID {
		return db.Invoice{}, svcerr.Forbidden("cannot create an invoice for another user")
	}
	if len(orders) == 0 {
		return db.Invoice{}, svcerr.ValidationMsg("at least one order is required")
	}
	if !buyerCurrency.Valid() {
		return db.Invoice{}, svcerr.ValidationMsg("unknown buyer currency")
	}

	var created db.Invoice
	err := db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		txq := s.baseDB.WithTx(tx)
		repos := s.repos.WithQuerier(txq)

		var err error
		if buyerCurrency.IsCrypto() {
			created, err = s.createCryptoInvoice(ctx, p, repos, buyerUserID, buyerCurrency, orders)
		} else {
			created, err = s.createFiatInvoice(ctx, p, repos, buyerUserID, buyerCurrency, orders)
		}
		return err
	})
	if err != nil {
		return db.Invoice{}, err
	}
	return created, nil
}

func (s *Service) createCryptoInvoice(ctx context.Context, p authz.Principal, repos *repo.Repos, buyerUserID uuid.UUID, buyerCurrency money.Currency, orders []NewOrder) (db.Invoice, error) {
	invoiceID := uuid.New()
	acc, err := s.allocateAccountTx(ctx, repos, buyerCurrency, invoiceID)
	if err != nil {
		return db.Invoice{}, err
	}

	inv, err := repos.Invoices.Create(ctx, p, db.CreateInvoiceParams{
		ID:            invoiceID,
		BuyerUserID:   buyerUserID,
		BuyerCurrency: string(buyerCurrency),
		AccountID:     pgtype.UUID{Bytes: acc.ID, Valid: true},
		Status:        db.InvoiceStatusPaymentAwaited,
	})
	if err != nil {
		return db.Invoice{}, err
	}

	for _, o := range orders {
		if _, err := repos.Orders.Create(ctx, db.CreateOrderParams{
			ID:             o.ID,
			InvoiceID:      invoiceID,
			StoreID:        o.StoreID,
			SellerCurrency: string(o.SellerCurrency),
			TotalAmount:    o.TotalAmount.ToNumeric(),
			CashbackAmount: o.CashbackAmount.ToNumeric(),
			State:          db.OrderStateInitial,
		}); err != nil {
			return db.Invoice{}, err
		}
		if o.SellerCurrency != buyerCurrency {
			if err := s.quoteAndStoreRate(ctx, repos, o.ID, o.SellerCurrency, buyerCurrency); err != nil {
				return db.Invoice{}, err
			}
		}
	}
	return inv, nil
}

func (s *Service) createFiatInvoice(ctx context.Context, p authz.Principal, repos *repo.Repos, buyerUserID uuid.UUID, buyerCurrency money.Currency, orders []NewOrder) (db.Invoice, error) {
	customer, ok, err := repos.Customers.GetByUserID(ctx, p, buyerUserID)
	if err != nil {
		return db.Invoice{}, err
	}
	if !ok {
		return db.Invoice{}, svcerr.ValidationMsg("buyer has no card-processor customer on file; create one before a fiat invoice")
	}

	var sum money.Amount
	for _, o := range orders {
		if o.SellerCurrency != buyerCurrency {
			return db.Invoice{}, svcerr.ValidationMsg("fiat invoices require every order's seller currency to match the buyer currency")
		}
		newSum, ok := sum.CheckedAdd(o.TotalAmount)
		if !ok {
			return db.Invoice{}, svcerr.Internal(fmt.Errorf("invoice: order total overflow"))
		}
		sum = newSum
	}

	invoiceID := uuid.New()
	inv, err := repos.Invoices.Create(ctx, p, db.CreateInvoiceParams{
		ID:            invoiceID,
		BuyerUserID:   buyerUserID,
		BuyerCurrency: string(buyerCurrency),
		AccountID:     pgtype.UUID{Valid: false},
		Status:        db.InvoiceStatusPaymentAwaited,
	})
	if err != nil {
		return db.Invoice{}, err
	}

	for _, o := range orders {
		if _, err := repos.Orders.Create(ctx, db.CreateOrderParams{
			ID:             o.ID,
			InvoiceID:      invoiceID,
			StoreID:        o.StoreID,
			SellerCurrency: string(o.SellerCurrency),
			TotalAmount:    o.TotalAmount.ToNumeric(),
			CashbackAmount: o.CashbackAmount.ToNumeric(),
			State:          db.OrderStateInitial,
		}); err != nil {
			return db.Invoice{}, err
		}
	}

	intentID, clientSecret, err := s.cards.CreatePaymentIntent(ctx, sum, buyerCurrency, customer.ID)
	if err != nil {
		return db.Invoice{}, svcerr.TransientExternal(err)
	}
	if _, err := repos.PaymentIntents.Create(ctx, db.CreatePaymentIntentParams{
		ID:           intentID,
		Amount:       sum.ToNumeric(),
		Currency:     string(buyerCurrency),
		Status:       db.PaymentIntentStatusRequiresCapture,
		ClientSecret: pgtype.Text{String: clientSecret, Valid: true},
	}); err != nil {
		return db.Invoice{}, err
	}
	if err := repos.PaymentIntents.LinkToInvoice(ctx, intentID, invoiceID); err != nil {
		return db.Invoice{}, err
	}
	return inv, nil
}

// allocateAccountTx allocates a free pooled account of currency, creating
// one through the crypto-payments collaborator on demand, with a
// compensating remote delete attempted if the local insert that follows
// fails (§4.1 step 1); a failed delete is logged and returned as an Internal
// error carrying both failures. The account is linked to
// invoiceID in the same transaction before returning, so the row a
// concurrent allocation would see is no longer free the instant this one
// commits.
func (s *Service) allocateAccountTx(ctx context.Context, repos *repo.Repos, currency money.Currency, invoiceID uuid.UUID) (db.Account, error) {
	acc, err := repos.Accounts.AllocateFreePooled(ctx, string(currency))
	if err == nil {
		if err := repos.Accounts.LinkToInvoice(ctx, acc.ID, invoiceID); err != nil {
			return db.Account{}, err
		}
		return acc, nil
	}
	if svcerr.As(err).Kind != svcerr.KindNotFound {
		return db.Account{}, err
	}

	id := uuid.New()
	walletAddress, err := s.payments.CreateAccount(ctx, id, currency)
	if err != nil {
		return db.Account{}, svcerr.TransientExternal(err)
	}
	created, err := repos.Accounts.Create(ctx, db.CreateAccountParams{
		ID:            id,
		Currency:      string(currency),
		IsPooled:      true,
		WalletAddress: walletAddress,
	})
	if err != nil {
		if delErr := s.payments.DeleteAccount(ctx, id); delErr != nil {
			logger.Error("invoice: compensating account delete failed", zap.String("account_id", id.String()), zap.Error(delErr))
			return db.Account{}, svcerr.Internal(fmt.Errorf("account %s orphaned at collaborator after failed insert (%v): compensating delete also failed: %w", id, err, delErr))
		}
		return db.Account{}, err
	}
	if err := repos.Accounts.LinkToInvoice(ctx, created.ID, invoiceID); err != nil {
		return db.Account{}, err
	}
	return created, nil
}

func (s *Service) quoteAndStoreRate(ctx context.Context, repos *repo.Repos, orderID uuid.UUID, from, to money.Currency) error {
	rate, exchangeID, err := s.payments.QuoteRate(ctx, from, to)
	if err != nil {
		return svcerr.TransientExternal(err)
	}
	rateNumeric, err := numericFromDecimal(rate)
	if err != nil {
		return svcerr.Internal(err)
	}
	_, err = repos.Orders.Requote(ctx, orderID, db.AddExchangeRateParams{
		ID:           uuid.New(),
		OrderID:      orderID,
		ExchangeID:   pgtype.UUID{Bytes: exchangeID, Valid: true},
		ExchangeRate: rateNumeric,
	})
	return err
}

// InvoiceDump is the invoice read model (§4.5): the invoice, its orders, and
// the buyer-currency total the orders currently sum to under active rates.
type InvoiceDump struct {
	Invoice         db.Invoice
	Orders          []db.Order
	RequiredTotal   money.Amount
	HasMissingRates bool
}

func (s *Service) GetInvoice(ctx context.Context, p authz.Principal, id uuid.UUID) (InvoiceDump, error) {
	inv, err := s.repos.Invoices.Get(ctx, p, id)
	if err != nil {
		return InvoiceDump{}, err
	}
	orders, err := s.repos.Invoices.ListOrders(ctx, p, id)
	if err != nil {
		return InvoiceDump{}, err
	}
	total, missing, err := s.requiredTotal(ctx, s.repos, money.Currency(inv.BuyerCurrency), orders)
	if err != nil {
		return InvoiceDump{}, err
	}
	return InvoiceDump{Invoice: inv, Orders: orders, RequiredTotal: total, HasMissingRates: missing}, nil
}

// requiredTotal implements §4.1's required_total(invoice): the sum of each
// order's total, converted into buyerCurrency via its currently Active rate
// (identity if currencies already match). An order with no active rate
// contributes nothing and flips hasMissing, surfacing has_missing_rates.
func (s *Service) requiredTotal(ctx context.Context, repos *repo.Repos, buyerCurrency money.Currency, orders []db.Order) (total money.Amount, hasMissing bool, err error) {
	for _, o := range orders {
		orderTotal, err := money.AmountFromNumeric(o.TotalAmount)
		if err != nil {
			return money.Amount{}, false, svcerr.Internal(err)
		}
		converted := orderTotal
		if money.Currency(o.SellerCurrency) != buyerCurrency {
			rate, ok, err := repos.Orders.GetActiveExchangeRate(ctx, o.ID)
			if err != nil {
				return money.Amount{}, false, err
			}
			if !ok {
				hasMissing = true
				continue
			}
			rat, err := rateToRat(rate.ExchangeRate)
			if err != nil {
				return money.Amount{}, false, svcerr.Internal(err)
			}
			converted, err = convertByRate(orderTotal, rat)
			if err != nil {
				return money.Amount{}, false, svcerr.Internal(err)
			}
		}
		sum, ok := total.CheckedAdd(converted)
		if !ok {
			return money.Amount{}, false, svcerr.Internal(fmt.Errorf("invoice: required_total overflow for invoice orders"))
		}
		total = sum
	}
	return total, hasMissing, nil
}

// RecalcInvoice re-quotes every cross-currency order's exchange rate and
// tells the orchestrator about each order's (unchanged) state, per
// recalc_invoice (§4.5).
func (s *Service) RecalcInvoice(ctx context.Context, p authz.Principal, id uuid.UUID) (db.Invoice, error) {
	inv, err := s.repos.Invoices.Get(ctx, p, id)
	if err != nil {
		return db.Invoice{}, err
	}
	orders, err := s.repos.Invoices.ListOrders(ctx, p, id)
	if err != nil {
		return db.Invoice{}, err
	}
	buyerCurrency := money.Currency(inv.BuyerCurrency)
	for _, o := range orders {
		if money.Currency(o.SellerCurrency) == buyerCurrency {
			continue
		}
		if err := s.quoteAndStoreRate(ctx, s.repos, o.ID, money.Currency(o.SellerCurrency), buyerCurrency); err != nil {
			return db.Invoice{}, err
		}
	}
	s.orchestrator.NotifyInvoiceStatus(ctx, id, inv.Status)
	for _, o := range orders {
		s.orchestrator.NotifyOrderState(ctx, o.ID, o.State)
	}
	return inv, nil
}

// UpdateInvoice is the crypto-payments collaborator callback backing
// update_invoice (§4.5): persist amount_captured and, if the collaborator
// itself reports the invoice paid, enqueue the InvoicePaid follow-up.
func (s *Service) UpdateInvoice(ctx context.Context, invoiceID uuid.UUID, amountCaptured money.Amount, remotePaid bool) error {
	return db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		txq := s.baseDB.WithTx(tx)
		repos := s.repos.WithQuerier(txq)

		inv, err := repos.Invoices.GetForUpdateInternal(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := repos.Invoices.UpdateAmountCapturedInternal(ctx, invoiceID, amountCaptured.ToNumeric()); err != nil {
			return err
		}
		if !remotePaid || inv.Status == db.InvoiceStatusPaid {
			return nil
		}
		return s.enqueueInvoicePaid(ctx, repos, invoiceID)
	})
}

// ApplyCredit is the crypto rail's credit-application path (§4.1): record an
// inbound on-chain transaction, checked-add it into amount_captured, and
// enqueue InvoicePaid once required_total is met. transaction_id uniqueness
// makes double application of the same on-chain transfer a silent no-op.
func (s *Service) ApplyCredit(ctx context.Context, invoiceID, transactionID uuid.UUID, amount money.Amount) error {
	return db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		txq := s.baseDB.WithTx(tx)
		repos := s.repos.WithQuerier(txq)

		_, applied, err := repos.Invoices.InsertAmountReceived(ctx, db.InsertAmountReceivedParams{
			TransactionID:  transactionID,
			InvoiceID:      invoiceID,
			AmountReceived: amount.ToNumeric(),
		})
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}

		inv, err := repos.Invoices.GetForUpdateInternal(ctx, invoiceID)
		if err != nil {
			return err
		}
		captured, err := money.AmountFromNumeric(inv.AmountCaptured)
		if err != nil {
			return svcerr.Internal(err)
		}
		newCaptured, ok := captured.CheckedAdd(amount)
		if !ok {
			return svcerr.Internal(fmt.Errorf("invoice: amount_captured overflow for invoice %s", invoiceID))
		}
		if err := repos.Invoices.UpdateAmountCapturedInternal(ctx, invoiceID, newCaptured.ToNumeric()); err != nil {
			return err
		}

		if inv.Status == db.InvoiceStatusPaid {
			return nil
		}
		orders, err := repos.Invoices.ListOrdersInternal(ctx, invoiceID)
		if err != nil {
			return err
		}
		required, hasMissing, err := s.requiredTotal(ctx, repos, money.Currency(inv.BuyerCurrency), orders)
		if err != nil {
			return err
		}
		if hasMissing || !newCaptured.GreaterOrEqual(required) {
			return nil
		}
		return s.enqueueInvoicePaid(ctx, repos, invoiceID)
	})
}

func (s *Service) enqueueInvoicePaid(ctx context.Context, repos *repo.Repos, invoiceID uuid.UUID) error {
	payload, err := eventstore.MarshalInvoicePaid(invoiceID)
	if err != nil {
		return svcerr.Internal(err)
	}
	_, err = repos.Events.Add(ctx, payload)
	return err
}

// HandleInvoicePaid is the InvoicePaid event-store handler (§4.2): mark the
// invoice Paid and every order Captured inside one transaction, then run the
// account drain/unlink, orchestrator notification, and per-order fee
// creation concurrently — all three must succeed for the event to complete.
func (s *Service) HandleInvoicePaid(ctx context.Context, invoiceID uuid.UUID) error {
	var inv db.Invoice
	var orders []db.Order

	err := db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		txq := s.baseDB.WithTx(tx)
		repos := s.repos.WithQuerier(txq)

		var err error
		inv, err = repos.Invoices.GetForUpdateInternal(ctx, invoiceID)
		if err != nil {
			return err
		}
		orders, err = repos.Invoices.ListOrdersInternal(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == db.InvoiceStatusPaid {
			return nil
		}

		amountCaptured, err := money.AmountFromNumeric(inv.AmountCaptured)
		if err != nil {
			return svcerr.Internal(err)
		}
		var cashbackSum money.Amount
		for _, o := range orders {
			cashback, err := money.AmountFromNumeric(o.CashbackAmount)
			if err != nil {
				return svcerr.Internal(err)
			}
			sum, ok := cashbackSum.CheckedAdd(cashback)
			if !ok {
				return svcerr.Internal(fmt.Errorf("invoice: cashback overflow for invoice %s", invoiceID))
			}
			cashbackSum = sum
		}
		if err := repos.Invoices.MarkPaidInternal(ctx, invoiceID, amountCaptured.ToNumeric(), cashbackSum.ToNumeric(), pgtype.Timestamptz{Time: time.Now(), Valid: true}); err != nil {
			return err
		}
		inv.Status = db.InvoiceStatusPaid

		for i, o := range orders {
			if !canTransition(o.State, db.OrderStateCaptured) {
				continue
			}
			if err := updateOrderState(ctx, repos.Orders, o, db.OrderStateCaptured); err != nil {
				return err
			}
			orders[i].State = db.OrderStateCaptured
		}
		return nil
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.drainAndUnlinkInvoiceAccount(gctx, inv) })
	g.Go(func() error {
		s.orchestrator.NotifyInvoiceStatus(gctx, invoiceID, db.InvoiceStatusPaid)
		for _, o := range orders {
			s.orchestrator.NotifyOrderState(gctx, o.ID, o.State)
		}
		return nil
	})
	g.Go(func() error { return s.createOrderFees(gctx, orders) })
	return g.Wait()
}

func (s *Service) drainAndUnlinkInvoiceAccount(ctx context.Context, inv db.Invoice) error {
	if !inv.AccountID.Valid {
		return nil
	}
	accountID := uuid.UUID(inv.AccountID.Bytes)
	if err := s.accounts.DrainAccount(ctx, accountID); err != nil {
		return err
	}
	return s.repos.Invoices.UnlinkAccount(ctx, inv.ID)
}

// createOrderFees synthesizes one Fee row per order at the configured
// percentage, expressed in integer basis points (§4.1 tie-break rule).
func (s *Service) createOrderFees(ctx context.Context, orders []db.Order) error {
	for _, o := range orders {
		total, err := money.AmountFromNumeric(o.TotalAmount)
		if err != nil {
			return svcerr.Internal(err)
		}
		feeAmount, ok := total.MulDivBasisPoints(s.feeCfg.OrderPercentBasisPoints)
		if !ok {
			return svcerr.Internal(fmt.Errorf("invoice: fee amount overflow for order %s", o.ID))
		}
		if _, err := s.repos.Fees.Create(ctx, db.CreateFeeParams{
			ID:       uuid.New(),
			OrderID:  o.ID,
			Amount:   feeAmount.ToNumeric(),
			Currency: o.SellerCurrency,
			Status:   db.FeeStatusNotPaid,
		}); err != nil {
			return err
		}
	}
	return nil
}

// HandleFiatCapturableUpdate is the PaymentIntentAmountCapturableUpdated
// event handler (§4.2/§4.1): record the intent's charge id and, depending on
// whether it backs an invoice or a fee, drive the corresponding paid
// transition.
func (s *Service) HandleFiatCapturableUpdate(ctx context.Context, intentID string, chargeID string) error {
	var invoiceID uuid.UUID
	var invoicePaid bool
	var orders []db.Order

	err := db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		txq := s.baseDB.WithTx(tx)
		repos := s.repos.WithQuerier(txq)

		pi, err := repos.PaymentIntents.GetInternal(ctx, intentID)
		if err != nil {
			return err
		}
		if err := repos.PaymentIntents.UpdateChargeID(ctx, intentID, pgtype.Text{String: chargeID, Valid: chargeID != ""}, db.PaymentIntentStatusRequiresCapture); err != nil {
			return err
		}

		switch {
		case pi.InvoiceID.Valid:
			invoiceID = uuid.UUID(pi.InvoiceID.Bytes)
			orders, err = repos.Invoices.ListOrdersInternal(ctx, invoiceID)
			if err != nil {
				return err
			}
			var cashbackSum money.Amount
			for _, o := range orders {
				total, err := money.AmountFromNumeric(o.TotalAmount)
				if err != nil {
					return svcerr.Internal(err)
				}
				feeAmount, err := feeAmountRoundHalfEven(total, s.feeCfg.OrderPercentBasisPoints)
				if err != nil {
					return svcerr.Internal(err)
				}
				if _, err := repos.Fees.Create(ctx, db.CreateFeeParams{
					ID:       uuid.New(),
					OrderID:  o.ID,
					Amount:   feeAmount.ToNumeric(),
					Currency: o.SellerCurrency,
					Status:   db.FeeStatusNotPaid,
				}); err != nil {
					return err
				}
				cashback, err := money.AmountFromNumeric(o.CashbackAmount)
				if err != nil {
					return svcerr.Internal(err)
				}
				sum, ok := cashbackSum.CheckedAdd(cashback)
				if !ok {
					return svcerr.Internal(fmt.Errorf("invoice: cashback overflow for invoice %s", invoiceID))
				}
				cashbackSum = sum
				if canTransition(o.State, db.OrderStateCaptured) {
					if err := updateOrderState(ctx, repos.Orders, o, db.OrderStateCaptured); err != nil {
						return err
					}
				}
			}
			if err := repos.Invoices.MarkPaidInternal(ctx, invoiceID, pi.Amount, cashbackSum.ToNumeric(), pgtype.Timestamptz{Time: time.Now(), Valid: true}); err != nil {
				return err
			}
			invoicePaid = true

		case pi.FeeID.Valid:
			feeID := uuid.UUID(pi.FeeID.Bytes)
			if err := repos.Fees.UpdateStatusInternal(ctx, feeID, db.FeeStatusPaid, pgtype.Text{String: chargeID, Valid: chargeID != ""}); err != nil {
				return err
			}

		default:
			return svcerr.Internal(fmt.Errorf("invoice: payment intent %s is linked to neither an invoice nor a fee", intentID))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if invoicePaid {
		s.orchestrator.NotifyInvoiceStatus(ctx, invoiceID, db.InvoiceStatusPaid)
		for _, o := range orders {
			s.orchestrator.NotifyOrderState(ctx, o.ID, o.State)
		}
	}
	return nil
}

// HandlePaymentIntentPaymentFailed acknowledges a failed fiat payment
// intent; per §4.2 no state changes or retries are driven here, only a
// scheduled follow-up elsewhere may act on it.
func (s *Service) HandlePaymentIntentPaymentFailed(ctx context.Context, intentID string) error {
	return nil
}

package invoice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/money"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// CreateCustomerWithSource registers a card token at the card processor and
// persists the resulting customer record — one per user (§4.6).
func (s *Service) CreateCustomerWithSource(ctx context.Context, p authz.Principal, email, sourceToken string) (db.Customer, error) {
	if p.UserID == uuid.Nil {
		return db.Customer{}, svcerr.Forbidden("no authenticated user")
	}
	customerID, err := s.cards.CreateCustomer(ctx, email, sourceToken)
	if err != nil {
		return db.Customer{}, svcerr.TransientExternal(err)
	}
	c, err := s.repos.Customers.Create(ctx, p, db.CreateCustomerParams{
		ID:     customerID,
		UserID: p.UserID,
		Email:  pgtype.Text{String: email, Valid: email != ""},
	})
	if err != nil {
		return db.Customer{}, err
	}
	return c, nil
}

// CreatePaymentIntentForFee creates a manual-capture remote PaymentIntent for
// a NotPaid fee and links it, per create_payment_intent_for_fee (§4.6).
func (s *Service) CreatePaymentIntentForFee(ctx context.Context, p authz.Principal, feeID uuid.UUID) (db.PaymentIntent, error) {
	fee, err := s.repos.Fees.Get(ctx, p, feeID)
	if err != nil {
		return db.PaymentIntent{}, err
	}
	if fee.Status != db.FeeStatusNotPaid {
		return db.PaymentIntent{}, svcerr.ValidationMsg("fee is not awaiting payment")
	}
	amount, err := money.AmountFromNumeric(fee.Amount)
	if err != nil {
		return db.PaymentIntent{}, svcerr.Internal(err)
	}
	currency := money.Currency(fee.Currency)

	customer, ok, err := s.repos.Customers.GetByUserID(ctx, p, p.UserID)
	if err != nil {
		return db.PaymentIntent{}, err
	}
	if !ok {
		return db.PaymentIntent{}, svcerr.ValidationMsg("no card-processor customer on file for this fee's payer")
	}

	intentID, clientSecret, err := s.cards.CreatePaymentIntent(ctx, amount, currency, customer.ID)
	if err != nil {
		return db.PaymentIntent{}, svcerr.TransientExternal(err)
	}
	pi, err := s.repos.PaymentIntents.Create(ctx, db.CreatePaymentIntentParams{
		ID:           intentID,
		Amount:       amount.ToNumeric(),
		Currency:     string(currency),
		Status:       db.PaymentIntentStatusRequiresCapture,
		ClientSecret: pgtype.Text{String: clientSecret, Valid: true},
	})
	if err != nil {
		return db.PaymentIntent{}, err
	}
	if err := s.repos.PaymentIntents.LinkToFee(ctx, intentID, feeID); err != nil {
		return db.PaymentIntent{}, err
	}
	return pi, nil
}

// CaptureOrder locates the PaymentIntent linked to the order's invoice,
// captures the order's total remotely, and transitions it to Captured
// (§4.6's capture_order).
func (s *Service) CaptureOrder(ctx context.Context, p authz.Principal, orderID uuid.UUID) error {
	return db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		txq := s.baseDB.WithTx(tx)
		repos := s.repos.WithQuerier(txq)

		o, err := repos.Orders.Get(ctx, p, orderID)
		if err != nil {
			return err
		}
		intentID, ok, err := s.intentIDForInvoice(ctx, repos, o.InvoiceID)
		if err != nil {
			return err
		}
		if !ok {
			return svcerr.ValidationMsg("order's invoice has no linked payment intent")
		}
		total, err := money.AmountFromNumeric(o.TotalAmount)
		if err != nil {
			return svcerr.Internal(err)
		}
		if err := s.cards.Capture(ctx, intentID, total); err != nil {
			return svcerr.TransientExternal(err)
		}
		return updateOrderState(ctx, repos.Orders, o, db.OrderStateCaptured)
	})
}

// RefundOrder locates the PaymentIntent linked to the order's invoice,
// refunds the order's total remotely with order-id metadata, and transitions
// it to Refunded (§4.6's refund_order).
func (s *Service) RefundOrder(ctx context.Context, p authz.Principal, orderID uuid.UUID) error {
	return db.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		txq := s.baseDB.WithTx(tx)
		repos := s.repos.WithQuerier(txq)

		o, err := repos.Orders.Get(ctx, p, orderID)
		if err != nil {
			return err
		}
		intentID, ok, err := s.intentIDForInvoice(ctx, repos, o.InvoiceID)
		if err != nil {
			return err
		}
		if !ok {
			return svcerr.ValidationMsg("order's invoice has no linked payment intent")
		}
		total, err := money.AmountFromNumeric(o.TotalAmount)
		if err != nil {
			return svcerr.Internal(err)
		}
		if err := s.cards.Refund(ctx, intentID, total, orderID.String()); err != nil {
			return svcerr.TransientExternal(err)
		}
		return updateOrderState(ctx, repos.Orders, o, db.OrderStateRefunded)
	})
}

func (s *Service) intentIDForInvoice(ctx context.Context, repos *repo.Repos, invoiceID uuid.UUID) (string, bool, error) {
	return repos.PaymentIntents.IDForInvoice(ctx, invoiceID)
}

// ChargeFee is charge_fee (§4.6): validate every referenced fee is NotPaid
// and every referenced order shares one store and currency, issue one remote
// charge for the sum, and mark all fees Paid (or Fail) together.
func (s *Service) ChargeFee(ctx context.Context, p authz.Principal, feeIDs []uuid.UUID) error {
	if len(feeIDs) == 0 {
		return svcerr.ValidationMsg("at least one fee is required")
	}

	fees := make([]db.Fee, 0, len(feeIDs))
	var storeID uuid.UUID
	var currency money.Currency
	var sum money.Amount
	for i, id := range feeIDs {
		f, err := s.repos.Fees.Get(ctx, p, id)
		if err != nil {
			return err
		}
		if f.Status != db.FeeStatusNotPaid {
			return svcerr.ValidationMsg("fee " + id.String() + " is not awaiting payment")
		}
		order, err := s.repos.Orders.Get(ctx, p, f.OrderID)
		if err != nil {
			return err
		}
		feeCurrency := money.Currency(f.Currency)
		if i == 0 {
			storeID = order.StoreID
			currency = feeCurrency
		} else {
			if order.StoreID != storeID {
				return svcerr.ValidationMsg("all fees charged together must belong to one store")
			}
			if feeCurrency != currency {
				return svcerr.ValidationMsg("all fees charged together must share one currency")
			}
		}
		amount, err := money.AmountFromNumeric(f.Amount)
		if err != nil {
			return svcerr.Internal(err)
		}
		newSum, ok := sum.CheckedAdd(amount)
		if !ok {
			return svcerr.Internal(fmt.Errorf("invoice: fee charge total overflow"))
		}
		sum = newSum
		fees = append(fees, f)
	}

	customer, ok, err := s.repos.Customers.GetByUserID(ctx, p, p.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return svcerr.ValidationMsg("no card-processor customer on file")
	}

	intentID, clientSecret, chargeErr := s.cards.CreatePaymentIntent(ctx, sum, currency, customer.ID)
	if chargeErr != nil {
		for _, f := range fees {
			_ = s.repos.Fees.UpdateStatus(ctx, p, f.ID, db.FeeStatusFail, pgtype.Text{})
		}
		return svcerr.TransientExternal(chargeErr)
	}
	if captureErr := s.cards.Capture(ctx, intentID, money.Zero()); captureErr != nil {
		for _, f := range fees {
			_ = s.repos.Fees.UpdateStatus(ctx, p, f.ID, db.FeeStatusFail, pgtype.Text{String: intentID, Valid: true})
		}
		return svcerr.TransientExternal(captureErr)
	}
	_ = clientSecret

	for _, f := range fees {
		if err := s.repos.Fees.UpdateStatus(ctx, p, f.ID, db.FeeStatusPaid, pgtype.Text{String: intentID, Valid: true}); err != nil {
			return err
		}
	}
	return nil
}

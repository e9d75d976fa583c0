package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, the way sqlc-generated
// code lets callers run a Queries against either a pool or an open
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Querier is the full repository surface the rest of the billing core
// depends on, per §9's "one interface per repo" design note — the
// DB-backed Queries is its only concrete implementation in this module;
// tests substitute fakes that embed the interface.
type Querier interface {
	// Accounts (C7)
	CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	GetFreePooledAccount(ctx context.Context, currency string) (Account, error)
	GetSystemAccount(ctx context.Context, currency string, systemName string) (Account, error)
	GetAccountByWalletAddress(ctx context.Context, walletAddress string) (Account, bool, error)
	CountPooledAccounts(ctx context.Context, currency string) (int64, error)
	LinkAccountToInvoice(ctx context.Context, accountID, invoiceID uuid.UUID) error
	UnlinkAccount(ctx context.Context, accountID uuid.UUID) error

	// Invoices (C6)
	CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error)
	UpdateInvoiceAmountCaptured(ctx context.Context, id uuid.UUID, amountCaptured pgtype.Numeric) error
	MarkInvoicePaid(ctx context.Context, id uuid.UUID, finalAmountPaid, finalCashbackAmount pgtype.Numeric, paidAt pgtype.Timestamptz) error
	UnlinkInvoiceAccount(ctx context.Context, id uuid.UUID) error
	GetInvoiceIDForAccount(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool, error)

	// AmountsReceived
	GetAmountReceived(ctx context.Context, transactionID uuid.UUID) (AmountReceived, error)
	InsertAmountReceived(ctx context.Context, arg InsertAmountReceivedParams) (AmountReceived, error)

	// Orders
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
	ListOrdersByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Order, error)
	ListOrdersByStoreAndState(ctx context.Context, storeID uuid.UUID, state string) ([]Order, error)
	UpdateOrderState(ctx context.Context, id uuid.UUID, state string) error
	UpdateOrderStripeFee(ctx context.Context, id uuid.UUID, fee pgtype.Numeric) error

	// Order exchange rates
	GetActiveExchangeRate(ctx context.Context, orderID uuid.UUID) (OrderExchangeRate, error)
	ExpireActiveExchangeRate(ctx context.Context, orderID uuid.UUID) error
	AddNewActiveExchangeRate(ctx context.Context, arg AddExchangeRateParams) (OrderExchangeRate, error)

	// Payment intents (fiat rail)
	CreatePaymentIntent(ctx context.Context, arg CreatePaymentIntentParams) (PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (PaymentIntent, error)
	UpdatePaymentIntentChargeID(ctx context.Context, id string, chargeID pgtype.Text, status string) error
	LinkPaymentIntentToInvoice(ctx context.Context, intentID string, invoiceID uuid.UUID) error
	LinkPaymentIntentToFee(ctx context.Context, intentID string, feeID uuid.UUID) error
	GetInvoiceIDForPaymentIntent(ctx context.Context, intentID string) (uuid.UUID, bool, error)
	GetPaymentIntentIDForInvoice(ctx context.Context, invoiceID uuid.UUID) (string, bool, error)
	GetFeeIDForPaymentIntent(ctx context.Context, intentID string) (uuid.UUID, bool, error)

	// Fees
	CreateFee(ctx context.Context, arg CreateFeeParams) (Fee, error)
	GetFee(ctx context.Context, id uuid.UUID) (Fee, error)
	ListFeesByOrders(ctx context.Context, orderIDs []uuid.UUID) ([]Fee, error)
	UpdateFeeStatus(ctx context.Context, id uuid.UUID, status string, chargeID pgtype.Text) error

	// Payouts (C8)
	CreatePayout(ctx context.Context, arg CreatePayoutParams, orderIDs []uuid.UUID) (Payout, error)
	GetPayout(ctx context.Context, id uuid.UUID) (Payout, error)
	ListPayoutsByStore(ctx context.Context, storeID uuid.UUID) ([]Payout, error)
	OrdersHavePayout(ctx context.Context, orderIDs []uuid.UUID) (bool, error)
	ListOrderIDsByPayout(ctx context.Context, payoutID uuid.UUID) ([]uuid.UUID, error)
	CompletePayout(ctx context.Context, id uuid.UUID, completedAt pgtype.Timestamptz) error

	// Subscriptions (C9)
	GetStoreSubscription(ctx context.Context, storeID uuid.UUID) (StoreSubscription, bool, error)
	UpsertStoreSubscriptionTrial(ctx context.Context, storeID uuid.UUID, currency string, trialStart pgtype.Timestamptz) error
	UpdateStoreSubscription(ctx context.Context, arg UpdateStoreSubscriptionParams) (StoreSubscription, error)
	CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) (Subscription, error)
	ListUnpaidSubscriptionsOlderThan(ctx context.Context, cutoff pgtype.Timestamptz) ([]Subscription, error)
	MarkSubscriptionPaid(ctx context.Context, id uuid.UUID, subscriptionPaymentID uuid.UUID) error
	CreateSubscriptionPayment(ctx context.Context, arg CreateSubscriptionPaymentParams) (SubscriptionPayment, error)

	// Event store (C5)
	AddEvent(ctx context.Context, payload []byte) (EventEntry, error)
	AddScheduledEvent(ctx context.Context, payload []byte, scheduledOn pgtype.Timestamptz) (EventEntry, error)
	GetEventsForProcessing(ctx context.Context, limit int32) ([]EventEntry, error)
	ResetStuckEvents(ctx context.Context, maxProcessingAttempts int32, stuckThresholdSec int32) ([]EventEntry, error)
	CompleteEvent(ctx context.Context, id int64) error
	FailEvent(ctx context.Context, id int64, maxProcessingAttempts int32) error

	// ACL / roles (C3)
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]UserRole, error)
	CreateUserRole(ctx context.Context, arg CreateUserRoleParams) (UserRole, error)
	DeleteUserRole(ctx context.Context, id uuid.UUID) error
	DeleteUserRolesByUserID(ctx context.Context, userID uuid.UUID) error
	GetInvoiceOwner(ctx context.Context, invoiceID uuid.UUID) (uuid.UUID, error)
	GetOrderStoreID(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)

	// Customers (fiat)
	CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error)
	GetCustomerByUserID(ctx context.Context, userID uuid.UUID) (Customer, bool, error)
}

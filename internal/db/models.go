// Package db is the billing core's hand-authored, sqlc-shaped persistence
// layer: row models, a Querier interface, and a pgx-backed implementation.
// No code-generation step produced this package — it is written directly in
// the idiom sqlc output takes in the reference platform (Queries/DBTX,
// pgtype-typed nullable columns, one XxxParams struct per mutating query).
package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID            uuid.UUID
	Currency      string
	IsPooled      bool
	IsSystem      bool
	SystemName    pgtype.Text
	WalletAddress string
	InvoiceID     pgtype.UUID // non-null while linked to an invoice awaiting payment
	CreatedAt     pgtype.Timestamptz
}

type Invoice struct {
	ID                  uuid.UUID
	BuyerUserID         uuid.UUID
	BuyerCurrency       string
	AccountID           pgtype.UUID
	AmountCaptured      pgtype.Numeric
	FinalAmountPaid     pgtype.Numeric
	FinalCashbackAmount pgtype.Numeric
	PaidAt              pgtype.Timestamptz
	Status              string
	CreatedAt           pgtype.Timestamptz
	UpdatedAt           pgtype.Timestamptz
}

type AmountReceived struct {
	TransactionID  uuid.UUID
	InvoiceID      uuid.UUID
	AmountReceived pgtype.Numeric
	CreatedAt      pgtype.Timestamptz
}

type Order struct {
	ID             uuid.UUID
	InvoiceID      uuid.UUID
	StoreID        uuid.UUID
	SellerCurrency string
	TotalAmount    pgtype.Numeric
	CashbackAmount pgtype.Numeric
	State          string
	StripeFee      pgtype.Numeric
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

type OrderExchangeRate struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ExchangeID   pgtype.UUID
	ExchangeRate pgtype.Numeric // decimal, stored as NUMERIC but holds a rate, not minor units
	Status       string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

type PaymentIntent struct {
	ID                      string
	Amount                  pgtype.Numeric
	AmountReceived          pgtype.Numeric
	Currency                string
	ChargeID                pgtype.Text
	Status                  string
	ClientSecret            pgtype.Text
	LastPaymentErrorMessage pgtype.Text
	InvoiceID               pgtype.UUID
	FeeID                   pgtype.UUID
	CreatedAt               pgtype.Timestamptz
	UpdatedAt               pgtype.Timestamptz
}

type Fee struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	Amount         pgtype.Numeric
	Currency       string
	Status         string
	ChargeID       pgtype.Text
	CryptoAmount   pgtype.Numeric
	CryptoCurrency pgtype.Text
	Metadata       []byte
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

type Payout struct {
	ID            uuid.UUID
	GrossAmount   pgtype.Numeric
	NetAmount     pgtype.Numeric
	Currency      string
	WalletAddress pgtype.Text
	BlockchainFee pgtype.Numeric
	UserID        uuid.UUID
	Status        string
	InitiatedAt   pgtype.Timestamptz
	CompletedAt   pgtype.Timestamptz
	CreatedAt     pgtype.Timestamptz
}

type OrderPayout struct {
	PayoutID uuid.UUID
	OrderID  uuid.UUID
}

type Subscription struct {
	ID                           uuid.UUID
	StoreID                      uuid.UUID
	PublishedBaseProductsQty     int64
	SubscriptionPaymentID        pgtype.UUID
	CreatedAt                    pgtype.Timestamptz
}

type StoreSubscription struct {
	StoreID        uuid.UUID
	Currency       string
	Value          pgtype.Numeric
	WalletAddress  pgtype.Text
	TrialStartDate pgtype.Timestamptz
	Status         string
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

type SubscriptionPayment struct {
	ID            uuid.UUID
	StoreID       uuid.UUID
	Amount        pgtype.Numeric
	Currency      string
	ChargeID      pgtype.Text
	TransactionID pgtype.Text
	Status        string
	CreatedAt     pgtype.Timestamptz
}

type EventEntry struct {
	ID              int64
	Event           []byte // JSON payload: {"kind": "...", ...fields}
	Status          string
	AttemptCount    int32
	CreatedAt       pgtype.Timestamptz
	StatusUpdatedAt pgtype.Timestamptz
	ScheduledOn     pgtype.Timestamptz
}

type UserRole struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Role   string
	Data   []byte // opaque JSON; holds {"store_id": "..."} for store-manager rows
}

type Customer struct {
	ID        string
	UserID    uuid.UUID
	Email     pgtype.Text
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

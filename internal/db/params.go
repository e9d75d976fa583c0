package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateAccountParams struct {
	ID            uuid.UUID
	Currency      string
	IsPooled      bool
	IsSystem      bool
	SystemName    pgtype.Text
	WalletAddress string
}

type CreateInvoiceParams struct {
	ID            uuid.UUID
	BuyerUserID   uuid.UUID
	BuyerCurrency string
	AccountID     pgtype.UUID
	Status        string
}

type InsertAmountReceivedParams struct {
	TransactionID  uuid.UUID
	InvoiceID      uuid.UUID
	AmountReceived pgtype.Numeric
}

type CreateOrderParams struct {
	ID             uuid.UUID
	InvoiceID      uuid.UUID
	StoreID        uuid.UUID
	SellerCurrency string
	TotalAmount    pgtype.Numeric
	CashbackAmount pgtype.Numeric
	State          string
}

type AddExchangeRateParams struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ExchangeID   pgtype.UUID
	ExchangeRate pgtype.Numeric
}

type CreatePaymentIntentParams struct {
	ID           string
	Amount       pgtype.Numeric
	Currency     string
	Status       string
	ClientSecret pgtype.Text
}

type CreateFeeParams struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	Amount   pgtype.Numeric
	Currency string
	Status   string
}

type CreatePayoutParams struct {
	ID            uuid.UUID
	GrossAmount   pgtype.Numeric
	NetAmount     pgtype.Numeric
	Currency      string
	WalletAddress pgtype.Text
	BlockchainFee pgtype.Numeric
	UserID        uuid.UUID
	Status        string
	InitiatedAt   pgtype.Timestamptz
}

type CreateSubscriptionParams struct {
	ID                       uuid.UUID
	StoreID                  uuid.UUID
	PublishedBaseProductsQty int64
}

type UpdateStoreSubscriptionParams struct {
	StoreID       uuid.UUID
	Currency      string
	Value         pgtype.Numeric
	WalletAddress pgtype.Text
	Status        string
}

type CreateSubscriptionPaymentParams struct {
	ID            uuid.UUID
	StoreID       uuid.UUID
	Amount        pgtype.Numeric
	Currency      string
	ChargeID      pgtype.Text
	TransactionID pgtype.Text
	Status        string
}

type CreateUserRoleParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Role   string
	Data   []byte
}

type CreateCustomerParams struct {
	ID     string
	UserID uuid.UUID
	Email  pgtype.Text
}

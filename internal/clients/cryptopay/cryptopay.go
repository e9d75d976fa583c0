// Package cryptopay wraps the crypto-payments collaborator this billing
// core delegates on-chain wallet management to: account lifecycle, rate
// quotes, balances, and internal/payout transfers.
package cryptopay

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/clients/httpx"
	"github.com/cyphera/billing-core/internal/money"
)

// Client is the collaborator surface the account, invoice, and payout
// services depend on. Both the HTTP-backed and in-memory mock
// implementations satisfy it.
type Client interface {
	CreateAccount(ctx context.Context, id uuid.UUID, currency money.Currency) (walletAddress string, err error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	QuoteRate(ctx context.Context, from, to money.Currency) (rate string, exchangeID uuid.UUID, err error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (money.Amount, error)
	// InternalTransfer moves amount from source to destination, both
	// collaborator account ids. transferID is caller-generated so retries
	// of the same logical transfer are idempotent at the collaborator.
	InternalTransfer(ctx context.Context, transferID uuid.UUID, source, destination uuid.UUID, currency money.Currency, amount money.Amount) error
	// PayoutTransfer sends amount to an external wallet address and returns
	// the blockchain fee charged.
	PayoutTransfer(ctx context.Context, transferID uuid.UUID, source uuid.UUID, currency money.Currency, amount money.Amount, destinationAddress string) (blockchainFee money.Amount, err error)
}

// HTTPClient is the real collaborator client: every call is a signed,
// retried JSON request over httpx.Client.
type HTTPClient struct {
	http      *httpx.Client
	signerKey []byte
	deviceID  string
}

func NewHTTPClient(baseURL string, signerKey []byte, deviceID string, opts ...httpx.Option) *HTTPClient {
	return &HTTPClient{http: httpx.New(baseURL, opts...), signerKey: signerKey, deviceID: deviceID}
}

// signedToken produces the device JWT the collaborator expects on every
// request, mirroring the reference platform's collaborator-call signing.
func (c *HTTPClient) signedToken() (string, error) {
	claims := jwt.MapClaims{
		"device_id": c.deviceID,
		"iat":       time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.signerKey)
}

func (c *HTTPClient) authed(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := c.signedToken()
	if err != nil {
		return fmt.Errorf("cryptopay: sign request: %w", err)
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	return c.http.DoJSONWithHeaders(ctx, method, path, headers, body, out)
}

type createAccountRequest struct {
	ID       uuid.UUID `json:"id"`
	Currency string    `json:"currency"`
}

type createAccountResponse struct {
	WalletAddress string `json:"wallet_address"`
}

func (c *HTTPClient) CreateAccount(ctx context.Context, id uuid.UUID, currency money.Currency) (string, error) {
	var resp createAccountResponse
	if err := c.authed(ctx, "POST", "/accounts", createAccountRequest{ID: id, Currency: string(currency)}, &resp); err != nil {
		return "", err
	}
	return resp.WalletAddress, nil
}

func (c *HTTPClient) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return c.authed(ctx, "DELETE", "/accounts/"+id.String(), nil, nil)
}

type quoteRateResponse struct {
	Rate       string    `json:"rate"`
	ExchangeID uuid.UUID `json:"exchange_id"`
}

func (c *HTTPClient) QuoteRate(ctx context.Context, from, to money.Currency) (string, uuid.UUID, error) {
	var resp quoteRateResponse
	path := fmt.Sprintf("/rates?from=%s&to=%s", from, to)
	if err := c.authed(ctx, "GET", path, nil, &resp); err != nil {
		return "", uuid.UUID{}, err
	}
	return resp.Rate, resp.ExchangeID, nil
}

type balanceResponse struct {
	Amount string `json:"amount"`
}

func (c *HTTPClient) GetBalance(ctx context.Context, accountID uuid.UUID) (money.Amount, error) {
	var resp balanceResponse
	if err := c.authed(ctx, "GET", "/accounts/"+accountID.String()+"/balance", nil, &resp); err != nil {
		return money.Amount{}, err
	}
	return money.NewFromString(resp.Amount)
}

type transferRequest struct {
	TransferID  uuid.UUID `json:"transfer_id"`
	Source      uuid.UUID `json:"source"`
	Destination uuid.UUID `json:"destination,omitempty"`
	Currency    string    `json:"currency"`
	Amount      string    `json:"amount"`
	ToAddress   string    `json:"to_address,omitempty"`
}

func (c *HTTPClient) InternalTransfer(ctx context.Context, transferID uuid.UUID, source, destination uuid.UUID, currency money.Currency, amount money.Amount) error {
	req := transferRequest{
		TransferID:  transferID,
		Source:      source,
		Destination: destination,
		Currency:    string(currency),
		Amount:      amount.String(),
	}
	return c.authed(ctx, "POST", "/transfers/internal", req, nil)
}

type payoutTransferResponse struct {
	BlockchainFee string `json:"blockchain_fee"`
}

func (c *HTTPClient) PayoutTransfer(ctx context.Context, transferID uuid.UUID, source uuid.UUID, currency money.Currency, amount money.Amount, destinationAddress string) (money.Amount, error) {
	req := transferRequest{
		TransferID: transferID,
		Source:     source,
		Currency:   string(currency),
		Amount:     amount.String(),
		ToAddress:  destinationAddress,
	}
	var resp payoutTransferResponse
	if err := c.authed(ctx, "POST", "/transfers/payout", req, &resp); err != nil {
		return money.Amount{}, err
	}
	return money.NewFromString(resp.BlockchainFee)
}

package cryptopay

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/money"
)

// MockClient is an in-memory stand-in for the crypto-payments collaborator,
// enabled by config (payments_mock.use_mock) for local/dev runs. Balances
// live only in process memory.
//
// Its reference implementation has a known defect: create_internal_transaction
// looks up the destination account twice instead of looking up source then
// destination, so the debit lands on the wrong side. That bug is not
// reproduced here — debit is always applied to source, credit to destination.
type MockClient struct {
	mu       sync.Mutex
	balances map[uuid.UUID]money.Amount
	accounts map[uuid.UUID]money.Currency
	seenTx   map[uuid.UUID]bool
}

func NewMockClient() *MockClient {
	return &MockClient{
		balances: make(map[uuid.UUID]money.Amount),
		accounts: make(map[uuid.UUID]money.Currency),
		seenTx:   make(map[uuid.UUID]bool),
	}
}

func (m *MockClient) CreateAccount(ctx context.Context, id uuid.UUID, currency money.Currency) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = currency
	m.balances[id] = money.Zero()
	return fmt.Sprintf("mock-%s-%s", currency, id.String()[:8]), nil
}

func (m *MockClient) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	delete(m.balances, id)
	return nil
}

// QuoteRate returns a 1:1 rate for every pair, same-currency or not; a real
// deployment never runs the mock across distinct crypto/fiat pairs.
func (m *MockClient) QuoteRate(ctx context.Context, from, to money.Currency) (string, uuid.UUID, error) {
	if from == to {
		return "1", uuid.New(), nil
	}
	return "1", uuid.New(), nil
}

func (m *MockClient) GetBalance(ctx context.Context, accountID uuid.UUID) (money.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[accountID]
	if !ok {
		return money.Amount{}, fmt.Errorf("cryptopay mock: unknown account %s", accountID)
	}
	return bal, nil
}

// Credit applies an inbound deposit to an account, simulating the
// collaborator's own chain-watcher crediting a pooled wallet. transferID
// dedupes repeated webhook deliveries of the same on-chain transaction.
func (m *MockClient) Credit(accountID uuid.UUID, transferID uuid.UUID, amount money.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seenTx[transferID] {
		return nil
	}
	bal, ok := m.balances[accountID]
	if !ok {
		return fmt.Errorf("cryptopay mock: unknown account %s", accountID)
	}
	sum, ok := bal.CheckedAdd(amount)
	if !ok {
		return fmt.Errorf("cryptopay mock: balance overflow crediting %s", accountID)
	}
	m.balances[accountID] = sum
	m.seenTx[transferID] = true
	return nil
}

func (m *MockClient) InternalTransfer(ctx context.Context, transferID uuid.UUID, source, destination uuid.UUID, currency money.Currency, amount money.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seenTx[transferID] {
		return nil
	}
	srcBal, ok := m.balances[source]
	if !ok {
		return fmt.Errorf("cryptopay mock: unknown source account %s", source)
	}
	dstBal, ok := m.balances[destination]
	if !ok {
		return fmt.Errorf("cryptopay mock: unknown destination account %s", destination)
	}
	newSrc, ok := srcBal.CheckedSub(amount)
	if !ok {
		return fmt.Errorf("cryptopay mock: insufficient balance on %s", source)
	}
	newDst, ok := dstBal.CheckedAdd(amount)
	if !ok {
		return fmt.Errorf("cryptopay mock: balance overflow crediting %s", destination)
	}
	m.balances[source] = newSrc
	m.balances[destination] = newDst
	m.seenTx[transferID] = true
	return nil
}

func (m *MockClient) PayoutTransfer(ctx context.Context, transferID uuid.UUID, source uuid.UUID, currency money.Currency, amount money.Amount, destinationAddress string) (money.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fee := money.Zero()
	if m.seenTx[transferID] {
		return fee, nil
	}
	srcBal, ok := m.balances[source]
	if !ok {
		return money.Amount{}, fmt.Errorf("cryptopay mock: unknown source account %s", source)
	}
	newSrc, ok := srcBal.CheckedSub(amount)
	if !ok {
		return money.Amount{}, fmt.Errorf("cryptopay mock: insufficient balance on %s", source)
	}
	m.balances[source] = newSrc
	m.seenTx[transferID] = true
	return fee, nil
}

var _ Client = (*MockClient)(nil)

package payout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// fakeQuerier implements db.Querier by embedding the interface (nil) and
// overriding only the methods a given test exercises, the way the reference
// platform's handler tests build a narrow mock per test case.
type fakeQuerier struct {
	db.Querier

	ordersHavePayout   bool
	createPayoutCalled bool
	completedPayoutID  uuid.UUID
	updatedOrderStates map[uuid.UUID]string
	orderIDsByPayout   []uuid.UUID
}

func (f *fakeQuerier) OrdersHavePayout(ctx context.Context, orderIDs []uuid.UUID) (bool, error) {
	return f.ordersHavePayout, nil
}

func (f *fakeQuerier) CreatePayout(ctx context.Context, arg db.CreatePayoutParams, orderIDs []uuid.UUID) (db.Payout, error) {
	f.createPayoutCalled = true
	return db.Payout{ID: arg.ID, Status: arg.Status}, nil
}

func (f *fakeQuerier) CompletePayout(ctx context.Context, id uuid.UUID, completedAt pgtype.Timestamptz) error {
	f.completedPayoutID = id
	return nil
}

func (f *fakeQuerier) UpdateOrderState(ctx context.Context, id uuid.UUID, state string) error {
	if f.updatedOrderStates == nil {
		f.updatedOrderStates = make(map[uuid.UUID]string)
	}
	f.updatedOrderStates[id] = state
	return nil
}

func (f *fakeQuerier) ListOrderIDsByPayout(ctx context.Context, payoutID uuid.UUID) ([]uuid.UUID, error) {
	return f.orderIDsByPayout, nil
}

func newTestRepos(q db.Querier) *repo.Repos {
	return repo.New(q, authz.New(q))
}

// TestPayoutRepoCreateRejectsAlreadyPaidOutOrders covers the §8
// payout-uniqueness property: an order already linked to a payout must
// never be accepted into a second one.
func TestPayoutRepoCreateRejectsAlreadyPaidOutOrders(t *testing.T) {
	q := &fakeQuerier{ordersHavePayout: true}
	repos := newTestRepos(q)

	orderIDs := []uuid.UUID{uuid.New()}
	_, err := repos.Payouts.Create(context.Background(), db.CreatePayoutParams{
		ID:     uuid.New(),
		Status: db.PayoutStatusProcessing,
	}, orderIDs)

	require.Error(t, err)
	require.Equal(t, svcerr.KindValidation, svcerr.As(err).Kind)
	require.False(t, q.createPayoutCalled, "CreatePayout must not run once OrdersHavePayout reports a conflict")
}

func TestPayoutRepoCreateAllowsFreshOrders(t *testing.T) {
	q := &fakeQuerier{ordersHavePayout: false}
	repos := newTestRepos(q)

	payoutID := uuid.New()
	created, err := repos.Payouts.Create(context.Background(), db.CreatePayoutParams{
		ID:     payoutID,
		Status: db.PayoutStatusProcessing,
	}, []uuid.UUID{uuid.New()})

	require.NoError(t, err)
	require.True(t, q.createPayoutCalled)
	require.Equal(t, payoutID, created.ID)
}

// TestCompletePayoutAndOrdersTransitionsEveryOrder covers the fix for
// HandlePayoutInitiated never moving its orders out of
// PaymentToSellerNeeded: completePayoutAndOrders must mark the payout
// Completed and every one of its orders PaidToSeller, so GetBalance stops
// counting them.
func TestCompletePayoutAndOrdersTransitionsEveryOrder(t *testing.T) {
	q := &fakeQuerier{}
	repos := newTestRepos(q)

	payoutID := uuid.New()
	orderIDs := []uuid.UUID{uuid.New(), uuid.New()}

	err := completePayoutAndOrders(context.Background(), repos, payoutID, orderIDs)
	require.NoError(t, err)

	require.Equal(t, payoutID, q.completedPayoutID)
	require.Len(t, q.updatedOrderStates, len(orderIDs))
	for _, id := range orderIDs {
		require.Equal(t, db.OrderStatePaidToSeller, q.updatedOrderStates[id])
	}
}

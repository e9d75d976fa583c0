package invoice

import (
	"context"

	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/repo"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// legalTransitions is the closed PaymentState graph (§4.1). Any order state
// change not listed here is rejected by updateOrderState with a Validation
// error.
var legalTransitions = map[string][]string{
	db.OrderStateInitial:              {db.OrderStateCaptured, db.OrderStateDeclined},
	db.OrderStateCaptured:             {db.OrderStateRefundNeeded, db.OrderStatePaymentToSellerNeeded},
	db.OrderStateRefundNeeded:         {db.OrderStateRefunded},
	db.OrderStatePaymentToSellerNeeded: {db.OrderStatePaidToSeller},
}

func canTransition(from, to string) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// updateOrderState validates the transition against the closed graph before
// writing it, so an illegal transition never reaches the database.
func updateOrderState(ctx context.Context, orders *repo.OrderRepo, o db.Order, to string) error {
	if !canTransition(o.State, to) {
		return svcerr.ValidationMsg("illegal order state transition: " + o.State + " -> " + to)
	}
	return orders.UpdateState(ctx, o.ID, to)
}

// UpdateOrderState is the service-level entry point for a direct, externally
// requested order transition (e.g. an operator-triggered refund-needed mark).
func (s *Service) UpdateOrderState(ctx context.Context, p authz.Principal, orderID uuid.UUID, to string) (db.Order, error) {
	o, err := s.repos.Orders.Get(ctx, p, orderID)
	if err != nil {
		return db.Order{}, err
	}
	if err := updateOrderState(ctx, s.repos.Orders, o, to); err != nil {
		return db.Order{}, err
	}
	o.State = to
	return o, nil
}

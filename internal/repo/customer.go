package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/svcerr"
)

type CustomerRepo struct {
	q   db.Querier
	acl *authz.ACL
}

// Create enforces "one customer per user" (§4.6) via the customers table's
// unique index on user_id; a second attempt surfaces as Validation.
func (r *CustomerRepo) Create(ctx context.Context, p authz.Principal, arg db.CreateCustomerParams) (db.Customer, error) {
	if arg.UserID != p.UserID {
		return db.Customer{}, svcerr.Forbidden("cannot create a customer record for another user")
	}
	c, err := r.q.CreateCustomer(ctx, arg)
	if err != nil {
		return db.Customer{}, mapWriteErr(err, "customer")
	}
	return c, nil
}

func (r *CustomerRepo) GetByUserID(ctx context.Context, p authz.Principal, userID uuid.UUID) (db.Customer, bool, error) {
	owner := authz.OwnerIdentity(userID)
	if err := r.acl.Check(ctx, p, authz.ResourceCustomer, authz.ActionRead, owner); err != nil {
		return db.Customer{}, false, err
	}
	c, ok, err := r.q.GetCustomerByUserID(ctx, userID)
	if err != nil {
		return db.Customer{}, false, svcerr.Internal(err)
	}
	return c, ok, nil
}

// GetByUserIDInternal skips the ACL check: it backs pay_subscriptions'
// fiat-rail lookup (§4.9), which runs with system authority rather than on
// behalf of an authenticated principal. Store billing contacts share the
// same customers table as buyers, keyed by the store's owning user id.
func (r *CustomerRepo) GetByUserIDInternal(ctx context.Context, userID uuid.UUID) (db.Customer, bool, error) {
	c, ok, err := r.q.GetCustomerByUserID(ctx, userID)
	if err != nil {
		return db.Customer{}, false, svcerr.Internal(err)
	}
	return c, ok, nil
}

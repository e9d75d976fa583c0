// Package repo wraps the hand-authored db.Querier with the ACL checks every
// entity access must pass: reads are checked after the row comes back (there
// is nothing to check an owner against beforehand), writes are checked
// before the statement runs. A denied check surfaces as svcerr.Forbidden;
// a unique-constraint violation surfaces as svcerr.Validation; anything else
// maps to svcerr.Internal.
package repo

import (
	"errors"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// Repos aggregates the per-entity repositories the services depend on, all
// sharing one db.Querier and one ACL instance — mirroring the teacher's
// per-service repository factory.
type Repos struct {
	Invoices       *InvoiceRepo
	Orders         *OrderRepo
	Accounts       *AccountRepo
	Fees           *FeeRepo
	Payouts        *PayoutRepo
	Subscriptions  *SubscriptionRepo
	Customers      *CustomerRepo
	Roles          *RoleRepo
	Events         *EventRepo
	PaymentIntents *PaymentIntentRepo
}

func New(q db.Querier, acl *authz.ACL) *Repos {
	return &Repos{
		Invoices:       &InvoiceRepo{q: q, acl: acl},
		Orders:         &OrderRepo{q: q, acl: acl},
		Accounts:       &AccountRepo{q: q, acl: acl},
		Fees:           &FeeRepo{q: q, acl: acl},
		Payouts:        &PayoutRepo{q: q, acl: acl},
		Subscriptions:  &SubscriptionRepo{q: q, acl: acl},
		Customers:      &CustomerRepo{q: q, acl: acl},
		Roles:          &RoleRepo{q: q, acl: acl},
		Events:         &EventRepo{q: q},
		PaymentIntents: &PaymentIntentRepo{q: q, acl: acl},
	}
}

// WithQuerier returns a shallow copy of Repos bound to a different Querier,
// the pattern services use to rebind a Repos to an open transaction
// (q.WithTx(tx)) for the duration of one multi-statement operation.
func (r *Repos) WithQuerier(q db.Querier) *Repos {
	clone := *r
	clone.Invoices = &InvoiceRepo{q: q, acl: r.Invoices.acl}
	clone.Orders = &OrderRepo{q: q, acl: r.Orders.acl}
	clone.Accounts = &AccountRepo{q: q, acl: r.Accounts.acl}
	clone.Fees = &FeeRepo{q: q, acl: r.Fees.acl}
	clone.Payouts = &PayoutRepo{q: q, acl: r.Payouts.acl}
	clone.Subscriptions = &SubscriptionRepo{q: q, acl: r.Subscriptions.acl}
	clone.Customers = &CustomerRepo{q: q, acl: r.Customers.acl}
	clone.Roles = &RoleRepo{q: q, acl: r.Roles.acl}
	clone.Events = &EventRepo{q: q}
	clone.PaymentIntents = &PaymentIntentRepo{q: q, acl: r.PaymentIntents.acl}
	return &clone
}

// mapWriteErr turns a unique-constraint violation into a field-level
// Validation error; everything else becomes Internal.
func mapWriteErr(err error, field string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrUniqueViolation) {
		return svcerr.Validation(map[string][]svcerr.FieldError{
			field: {{Code: "already_exists", Message: err.Error()}},
		})
	}
	return svcerr.Internal(err)
}

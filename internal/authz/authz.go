// Package authz implements the resource/action/scope permission model
// gating every repository access: a role grants a set of
// (Resource, Action, Scope) tuples, and Owned-scoped grants are checked
// against DB-stored ownership metadata rather than trusted blindly.
package authz

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/svcerr"
)

type Resource string

const (
	ResourceInvoice           Resource = "invoice"
	ResourceOrder             Resource = "order"
	ResourceOrderExchangeRate Resource = "order_exchange_rate"
	ResourcePaymentIntent     Resource = "payment_intent"
	ResourceAccount           Resource = "account"
	ResourceFee               Resource = "fee"
	ResourceCustomer          Resource = "customer"
	ResourcePayout            Resource = "payout"
	ResourceSubscription      Resource = "subscription"
	ResourceStoreSubscription Resource = "store_subscription"
	ResourceUserRoles         Resource = "user_roles"
	ResourceUserWallet        Resource = "user_wallet"
	ResourceBillingInfo       Resource = "billing_info"
)

type Action string

const (
	ActionAll   Action = "all"
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

type Scope string

const (
	ScopeAll   Scope = "all"
	ScopeOwned Scope = "owned"
)

type grant struct {
	resource Resource
	action   Action
	scope    Scope
}

func matches(g grant, resource Resource, action Action) bool {
	if g.resource != resource {
		return false
	}
	if g.action == ActionAll {
		return true
	}
	return g.action == action
}

// roleTable is the initial role → grants table (§4.3). Superuser has
// ScopeAll over every resource this billing core manages; User and
// StoreManager are scoped to what they own.
var roleTable = map[string][]grant{
	db.RoleSuperuser: {
		{"*", ActionAll, ScopeAll},
	},
	db.RoleUser: {
		{ResourceUserRoles, ActionRead, ScopeOwned},
		{ResourceInvoice, ActionAll, ScopeOwned},
		{ResourceOrder, ActionAll, ScopeOwned},
		{ResourceCustomer, ActionAll, ScopeOwned},
		{ResourcePaymentIntent, ActionRead, ScopeOwned},
		{ResourceUserWallet, ActionAll, ScopeOwned},
	},
	db.RoleStoreManager: {
		{ResourceOrder, ActionRead, ScopeOwned},
		{ResourceFee, ActionAll, ScopeOwned},
		{ResourcePayout, ActionAll, ScopeOwned},
		{ResourceStoreSubscription, ActionAll, ScopeOwned},
		{ResourceBillingInfo, ActionAll, ScopeOwned},
	},
}

// Principal is the authenticated caller a check is performed on behalf of.
type Principal struct {
	UserID uuid.UUID
	Roles  []db.UserRole
}

// OwnerResolver resolves the owning identity of a resource instance —
// a user id for user-owned resources, a store id for store-owned ones.
type OwnerResolver func(ctx context.Context) (uuid.UUID, error)

// ACL evaluates permission checks against the role table and a
// per-principal role cache, invalidated whenever roles are mutated.
type ACL struct {
	querier db.Querier

	mu    sync.RWMutex
	cache map[uuid.UUID][]db.UserRole
}

func New(querier db.Querier) *ACL {
	return &ACL{querier: querier, cache: make(map[uuid.UUID][]db.UserRole)}
}

// Invalidate drops a user's cached roles; call after any CreateUserRole/
// DeleteUserRole affecting that user.
func (a *ACL) Invalidate(userID uuid.UUID) {
	a.mu.Lock()
	delete(a.cache, userID)
	a.mu.Unlock()
}

func (a *ACL) rolesFor(ctx context.Context, userID uuid.UUID) ([]db.UserRole, error) {
	a.mu.RLock()
	roles, ok := a.cache[userID]
	a.mu.RUnlock()
	if ok {
		return roles, nil
	}
	roles, err := a.querier.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.cache[userID] = roles
	a.mu.Unlock()
	return roles, nil
}

// Check enforces (resource, action) for principal. For Owned-scoped grants,
// owner is invoked to resolve the resource instance's owning identity; it is
// not called at all if a grant already matches at ScopeAll. A grant is
// considered owning for a StoreManager role if the caller's role data equals
// the store id owner resolves to; for a User role, if owner resolves to the
// caller's own user id.
func (a *ACL) Check(ctx context.Context, p Principal, resource Resource, action Action, owner OwnerResolver) error {
	roles, err := a.rolesFor(ctx, p.UserID)
	if err != nil {
		return svcerr.Internal(err)
	}

	var needsOwned bool
	for _, ur := range roles {
		for _, g := range roleTable[ur.Role] {
			if !matches(g, resource, action) && !matches(g, "*", action) {
				continue
			}
			if g.scope == ScopeAll {
				return nil
			}
			needsOwned = true
		}
	}
	if !needsOwned {
		return svcerr.Forbidden("no grant for this resource/action")
	}
	if owner == nil {
		return svcerr.Forbidden("owned scope requires an owner resolver")
	}

	ownerID, err := owner(ctx)
	if err != nil {
		return svcerr.Internal(err)
	}
	for _, ur := range roles {
		for _, g := range roleTable[ur.Role] {
			if g.scope != ScopeOwned || (!matches(g, resource, action) && !matches(g, "*", action)) {
				continue
			}
			switch ur.Role {
			case db.RoleStoreManager:
				if storeMatchesRoleData(ur.Data, ownerID) {
					return nil
				}
			default:
				if ownerID == p.UserID {
					return nil
				}
			}
		}
	}
	return svcerr.Forbidden("caller does not own this resource")
}

// OwnerFromInvoice resolves the Owned scope for Invoice, and (via the invoice
// they belong to) Order, OrderExchangeRate, and PaymentIntent.
func OwnerFromInvoice(querier db.Querier, invoiceID uuid.UUID) OwnerResolver {
	return func(ctx context.Context) (uuid.UUID, error) {
		return querier.GetInvoiceOwner(ctx, invoiceID)
	}
}

// OwnerFromOrderStore resolves the Owned scope for Fee, Payout,
// StoreSubscription, and BillingInfo via the order's store.
func OwnerFromOrderStore(querier db.Querier, orderID uuid.UUID) OwnerResolver {
	return func(ctx context.Context) (uuid.UUID, error) {
		return querier.GetOrderStoreID(ctx, orderID)
	}
}

// OwnerIdentity resolves the Owned scope for Customer and UserWallet, where
// the owning identity is the resource's own user_id field.
func OwnerIdentity(userID uuid.UUID) OwnerResolver {
	return func(ctx context.Context) (uuid.UUID, error) { return userID, nil }
}

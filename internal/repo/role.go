package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/cyphera/billing-core/internal/authz"
	"github.com/cyphera/billing-core/internal/db"
	"github.com/cyphera/billing-core/internal/svcerr"
)

// RoleRepo is the only repo Superuser-only actions touch directly; the
// grant table gives Superuser (AnyResource, All, All) over UserRoles and
// User only (UserRoles, Read, Owned) over its own roles.
type RoleRepo struct {
	q   db.Querier
	acl *authz.ACL
}

func (r *RoleRepo) ListForUser(ctx context.Context, p authz.Principal, userID uuid.UUID) ([]db.UserRole, error) {
	owner := authz.OwnerIdentity(userID)
	if err := r.acl.Check(ctx, p, authz.ResourceUserRoles, authz.ActionRead, owner); err != nil {
		return nil, err
	}
	roles, err := r.q.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, svcerr.Internal(err)
	}
	return roles, nil
}

func (r *RoleRepo) Create(ctx context.Context, p authz.Principal, arg db.CreateUserRoleParams) (db.UserRole, error) {
	owner := authz.OwnerIdentity(arg.UserID)
	if err := r.acl.Check(ctx, p, authz.ResourceUserRoles, authz.ActionWrite, owner); err != nil {
		return db.UserRole{}, err
	}
	role, err := r.q.CreateUserRole(ctx, arg)
	if err != nil {
		return db.UserRole{}, mapWriteErr(err, "user_role")
	}
	r.acl.Invalidate(arg.UserID)
	return role, nil
}

func (r *RoleRepo) Delete(ctx context.Context, p authz.Principal, id, userID uuid.UUID) error {
	owner := authz.OwnerIdentity(userID)
	if err := r.acl.Check(ctx, p, authz.ResourceUserRoles, authz.ActionWrite, owner); err != nil {
		return err
	}
	if err := r.q.DeleteUserRole(ctx, id); err != nil {
		return svcerr.Internal(err)
	}
	r.acl.Invalidate(userID)
	return nil
}

func (r *RoleRepo) DeleteAllForUser(ctx context.Context, p authz.Principal, userID uuid.UUID) error {
	owner := authz.OwnerIdentity(userID)
	if err := r.acl.Check(ctx, p, authz.ResourceUserRoles, authz.ActionWrite, owner); err != nil {
		return err
	}
	if err := r.q.DeleteUserRolesByUserID(ctx, userID); err != nil {
		return svcerr.Internal(err)
	}
	r.acl.Invalidate(userID)
	return nil
}

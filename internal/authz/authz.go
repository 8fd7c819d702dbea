// Package authz holds the single authorization predicate used by every
// privileged operation. Components receive a Policy and the caller's
// Principal instead of checking roles themselves.
package authz

import (
	"context"

	"github.com/fjod/go_storefront/internal/domain"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller. The zero value is an anonymous guest.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) Anonymous() bool {
	return p.UserID == ""
}

type Policy interface {
	IsAdmin(p Principal) bool
	// CanAccess reports whether p may act on a resource owned by ownerID.
	// An empty ownerID (a guest's resource) is accessible to admins only.
	CanAccess(p Principal, ownerID string) bool
}

// RolePolicy grants admins everything and users their own resources.
type RolePolicy struct{}

func (RolePolicy) IsAdmin(p Principal) bool {
	return !p.Anonymous() && p.Role == RoleAdmin
}

func (r RolePolicy) CanAccess(p Principal, ownerID string) bool {
	if r.IsAdmin(p) {
		return true
	}
	return !p.Anonymous() && ownerID != "" && p.UserID == ownerID
}

// RequireAdmin returns domain.ErrAdminOnly unless p is an admin.
func RequireAdmin(policy Policy, p Principal) error {
	if !policy.IsAdmin(p) {
		return domain.ErrAdminOnly
	}
	return nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the auth middleware, or the
// anonymous principal.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

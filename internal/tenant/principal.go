// Package tenant narrows data access to the organization of the acting
// principal. The principal is always passed explicitly; there is no
// process-wide "current user".
package tenant

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
)

// Column is the tenant foreign key carried by every tenant-owned table.
const Column = "organization_id"

var ErrOrganizationRequired = errors.New("organization is required")

// Principal is the authenticated actor on whose behalf a query runs.
// OrganizationID is uuid.Nil for principals that do not belong to an
// organization (platform super-admins).
type Principal struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	SuperAdmin     bool
	Roles          []string
}

// Scoped reports whether queries made by p are restricted to one organization.
// A nil principal (background work, CLI) is never scoped.
func (p *Principal) Scoped() bool {
	return p != nil && p.OrganizationID != uuid.Nil
}

func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// CanSee reports whether a row owned by orgID is visible to p.
func (p *Principal) CanSee(orgID uuid.UUID) bool {
	if !p.Scoped() {
		return true
	}
	return p.OrganizationID == orgID
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored by the auth middleware, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}

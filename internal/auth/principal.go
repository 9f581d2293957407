package auth

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/rbac"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

// IsSuperAdmin reports whether u holds the super_admin role or owns the
// configured super-admin email.
func IsSuperAdmin(u *models.User, superAdminEmail string) bool {
	if slices.Contains(u.Roles, rbac.RoleSuperAdmin) {
		return true
	}
	return superAdminEmail != "" && strings.EqualFold(u.Email, superAdminEmail)
}

// Principal builds the acting identity for u. Super-admins are never scoped
// to an organization, even when they belong to one.
func Principal(u *models.User, superAdminEmail string) *tenant.Principal {
	p := &tenant.Principal{
		UserID:         u.ID,
		OrganizationID: u.OrgID(),
		Email:          u.Email,
		Roles:          slices.Clone(u.Roles),
	}
	if IsSuperAdmin(u, superAdminEmail) {
		p.SuperAdmin = true
		p.OrganizationID = uuid.Nil
	}
	return p
}

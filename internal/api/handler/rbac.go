package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/rbac"
)

// RoleManager reads and replaces role grants.
type RoleManager interface {
	Permissions(role string) []string
	SetRolePermissions(ctx context.Context, role string, perms []string) error
}

type RBAC struct {
	roles RoleManager
	debug bool
}

func NewRBAC(roles RoleManager, debug bool) *RBAC {
	return &RBAC{roles: roles, debug: debug}
}

type roleGrants struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type rolePermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

func (h *RBAC) Roles(w http.ResponseWriter, r *http.Request) {
	out := make([]roleGrants, 0, len(rbac.Roles))
	for _, role := range rbac.Roles {
		out = append(out, roleGrants{Role: role, Permissions: h.grants(role)})
	}
	response.Success(w, out, "")
}

func (h *RBAC) Permissions(w http.ResponseWriter, r *http.Request) {
	response.Success(w, rbac.Groups, "")
}

// UpdateRole replaces the permissions granted to a role.
func (h *RBAC) UpdateRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	var in rolePermissionsRequest
	if problem := decode(r, &in, "role permission update"); problem != nil {
		problem.Write(w)
		return
	}

	err := h.roles.SetRolePermissions(r.Context(), role, in.Permissions)
	switch {
	case errors.Is(err, rbac.ErrUnknownRole):
		response.NotFoundError("role", role, nil).Write(w)
		return
	case errors.Is(err, rbac.ErrImmutableRole):
		response.BusinessLogicError("The super_admin role always holds every permission.", "IMMUTABLE_ROLE", nil,
			[]string{"Edit the admin or staff role instead"}).Write(w)
		return
	case errors.Is(err, rbac.ErrUnknownPermission):
		response.ValidationError(map[string][]string{
			"permissions": {err.Error()},
		}, "role permission update").Write(w)
		return
	case err != nil:
		storeError(w, r, err, "role permission update", "role", role, h.debug)
		return
	}
	response.Success(w, roleGrants{Role: role, Permissions: h.grants(role)}, "Role permissions updated successfully")
}

func (h *RBAC) grants(role string) []string {
	perms := h.roles.Permissions(role)
	if perms == nil {
		perms = []string{}
	}
	return perms
}

package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/rbac"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

// UserStore is the storage used by the user management endpoints.
type UserStore interface {
	GetUser(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, p *tenant.Principal, q store.ListQuery) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*models.User, error)
}

// Authorizer answers permission checks made inside a handler.
type Authorizer interface {
	Can(p *tenant.Principal, perm string) bool
	RequiredRole(perm string) string
}

type Users struct {
	store           UserStore
	perms           Authorizer
	forget          Forgetter
	pager           Pager
	superAdminEmail string
	debug           bool
}

func NewUsers(s UserStore, perms Authorizer, forget Forgetter, pager Pager, superAdminEmail string, debug bool) *Users {
	return &Users{store: s, perms: perms, forget: forget, pager: pager, superAdminEmail: superAdminEmail, debug: debug}
}

type rolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=super_admin admin staff"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

type profileRequest struct {
	FirstName *string `json:"first_name" db:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name"  db:"last_name"  validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone"      db:"phone"      validate:"omitempty,max=20"`
}

func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q, problem := h.pager.listQuery(r, "role", "status", tenant.Column)
	if problem != nil {
		problem.Write(w)
		return
	}
	users, total, err := h.store.ListUsers(r.Context(), p, q)
	if err != nil {
		storeError(w, r, err, "listing users", "user", "", h.debug)
		return
	}
	paginated(w, users, total, q, "")
}

func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}
	u, err := h.store.GetUser(r.Context(), p, id)
	if err != nil {
		storeError(w, r, err, "user retrieval", "user", id.String(), h.debug)
		return
	}
	response.Success(w, u, "")
}

// UpdateRoles replaces a user's roles. Only super-admins may grant
// super_admin or change the roles of a super-admin.
func (h *Users) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}
	var in rolesRequest
	if problem := decode(r, &in, "role update"); problem != nil {
		problem.Write(w)
		return
	}
	if slices.Contains(in.Roles, rbac.RoleSuperAdmin) && !p.SuperAdmin {
		response.ForbiddenError("assign the super_admin role", rbac.RoleSuperAdmin, nil).Write(w)
		return
	}
	if !h.guardTarget(w, r, p, id, "change the roles of a super-admin", "role update") {
		return
	}
	slices.Sort(in.Roles)
	h.update(w, r, p, id, map[string]any{"roles": slices.Compact(in.Roles)}, "role update", "User roles updated successfully")
}

func (h *Users) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}
	var in statusRequest
	if problem := decode(r, &in, "status update"); problem != nil {
		problem.Write(w)
		return
	}
	if id == p.UserID {
		response.BusinessLogicError("You cannot change the status of your own account.", "CANNOT_CHANGE_OWN_STATUS", nil,
			[]string{"Ask another administrator to change your account status"}).Write(w)
		return
	}
	if !h.guardTarget(w, r, p, id, "change the status of a super-admin", "status update") {
		return
	}
	h.update(w, r, p, id, map[string]any{"status": in.Status}, "status update", "User status updated successfully")
}

// UpdateProfile edits name and phone. Users may edit their own profile;
// editing someone else's needs "manage users".
func (h *Users) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}
	if id != p.UserID {
		if !h.perms.Can(p, "manage users") {
			response.ForbiddenError("manage users", h.perms.RequiredRole("manage users"), nil).Write(w)
			return
		}
		if !h.guardTarget(w, r, p, id, "edit the profile of a super-admin", "profile update") {
			return
		}
	}
	var in profileRequest
	if problem := decode(r, &in, "profile update"); problem != nil {
		problem.Write(w)
		return
	}
	h.update(w, r, p, id, valuesOf(&in), "profile update", "Profile updated successfully")
}

// guardTarget loads the user being changed and refuses when it is a
// super-admin and the caller is not.
func (h *Users) guardTarget(w http.ResponseWriter, r *http.Request, p *tenant.Principal, id uuid.UUID, action, operation string) bool {
	target, err := h.store.GetUser(r.Context(), p, id)
	if err != nil {
		storeError(w, r, err, operation, "user", id.String(), h.debug)
		return false
	}
	return protectSuperAdmin(w, p, target, h.superAdminEmail, action)
}

func (h *Users) update(w http.ResponseWriter, r *http.Request, p *tenant.Principal, id uuid.UUID, values map[string]any, operation, message string) {
	u, err := h.store.UpdateUser(r.Context(), p, id, values)
	if err != nil {
		storeError(w, r, err, operation, "user", id.String(), h.debug)
		return
	}
	h.forget.Forget(id)
	response.Success(w, u, message)
}

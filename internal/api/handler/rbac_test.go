package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/kiranshivaraju/dealflow/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRoles struct {
	grants map[string][]string
}

func (m *mockRoles) Permissions(role string) []string { return m.grants[role] }

func (m *mockRoles) SetRolePermissions(_ context.Context, role string, perms []string) error {
	switch {
	case !rbac.ValidRole(role):
		return fmt.Errorf("%w: %q", rbac.ErrUnknownRole, role)
	case role == rbac.RoleSuperAdmin:
		return rbac.ErrImmutableRole
	}
	for _, p := range perms {
		if !rbac.ValidPermission(p) {
			return fmt.Errorf("%w: %q", rbac.ErrUnknownPermission, p)
		}
	}
	m.grants[role] = perms
	return nil
}

func TestRBACRoles(t *testing.T) {
	h := NewRBAC(&mockRoles{grants: map[string][]string{"staff": {"view leads"}}}, false)

	rec, env := serve(t, h.Roles, newRequest(t, http.MethodGet, "/rbac/roles", nil, superAdmin()))
	require.Equal(t, http.StatusOK, rec.Code)

	var roles []roleGrants
	require.NoError(t, json.Unmarshal(env.Data, &roles))
	require.Len(t, roles, 3)
	assert.Equal(t, roleGrants{Role: "staff", Permissions: []string{"view leads"}}, roles[0])
	assert.Equal(t, []string{}, roles[1].Permissions)
}

func TestRBACPermissions(t *testing.T) {
	h := NewRBAC(&mockRoles{}, false)
	_, env := serve(t, h.Permissions, newRequest(t, http.MethodGet, "/rbac/permissions", nil, superAdmin()))

	var groups []rbac.PermissionGroup
	require.NoError(t, json.Unmarshal(env.Data, &groups))
	assert.Equal(t, rbac.Groups, groups)
}

func TestRBACUpdateRole(t *testing.T) {
	roles := &mockRoles{grants: map[string][]string{}}
	h := NewRBAC(roles, false)

	body := map[string]any{"permissions": []string{"view deals", "manage deals"}}
	rec, _ := serve(t, h.UpdateRole, newRequest(t, http.MethodPut, "/", body, superAdmin(), "role", "staff"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"view deals", "manage deals"}, roles.grants["staff"])

	rec, _ = serve(t, h.UpdateRole, newRequest(t, http.MethodPut, "/", body, superAdmin(), "role", "owner"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := serve(t, h.UpdateRole, newRequest(t, http.MethodPut, "/", body, superAdmin(), "role", "super_admin"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMMUTABLE_ROLE", env.Error.Code)

	body = map[string]any{"permissions": []string{"launch rockets"}}
	rec, env = serve(t, h.UpdateRole, newRequest(t, http.MethodPut, "/", body, superAdmin(), "role", "staff"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, fieldErrorsOf(env), "permissions")

	rec, _ = serve(t, h.UpdateRole, newRequest(t, http.MethodPut, "/", map[string]any{"permissions": []string{}}, superAdmin(), "role", "staff"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, roles.grants["staff"])
}

package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrUnknownPermission = errors.New("unknown permission")
	ErrImmutableRole     = errors.New("role permissions cannot be changed")
)

const casbinModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == "super_admin" || (r.sub == p.sub && r.act == p.act)
`

// PolicyStore persists role grants.
type PolicyStore interface {
	ListRolePermissions(ctx context.Context) (map[string][]string, error)
	ReplaceRolePermissions(ctx context.Context, role string, permissions []string) error
}

// Enforcer answers permission checks from an in-memory casbin policy kept in
// step with the PolicyStore.
type Enforcer struct {
	store    PolicyStore
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads the stored grants, seeding the defaults into an empty store.
func NewEnforcer(ctx context.Context, store PolicyStore) (*Enforcer, error) {
	m, err := model.NewModelFromString(casbinModel)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	ce, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	grants, err := store.ListRolePermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	if len(grants) == 0 {
		grants = DefaultGrants()
		for _, role := range Roles {
			if err := store.ReplaceRolePermissions(ctx, role, grants[role]); err != nil {
				return nil, fmt.Errorf("seed %s permissions: %w", role, err)
			}
		}
		zerolog.Ctx(ctx).Info().Msg("seeded default role permissions")
	}

	e := &Enforcer{store: store, enforcer: ce}
	for role, perms := range grants {
		if err := e.load(role, perms); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Enforcer) load(role string, perms []string) error {
	if len(perms) == 0 {
		return nil
	}
	rules := make([][]string, 0, len(perms))
	for _, p := range perms {
		rules = append(rules, []string{role, p})
	}
	if _, err := e.enforcer.AddPolicies(rules); err != nil {
		return fmt.Errorf("load %s policy: %w", role, err)
	}
	return nil
}

// Can reports whether any role of p grants perm. Super-admins pass every check.
func (e *Enforcer) Can(p *tenant.Principal, perm string) bool {
	if p == nil {
		return false
	}
	if p.SuperAdmin {
		return true
	}
	for _, role := range p.Roles {
		ok, err := e.enforcer.Enforce(role, perm)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Permissions returns the permissions granted to role, sorted.
func (e *Enforcer) Permissions(role string) []string {
	if role == RoleSuperAdmin {
		return AllPermissions()
	}
	rules, err := e.enforcer.GetFilteredPolicy(0, role)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r[1])
	}
	slices.Sort(out)
	return out
}

// RequiredRole names the least privileged role granting perm.
func (e *Enforcer) RequiredRole(perm string) string {
	for _, role := range Roles {
		if slices.Contains(e.Permissions(role), perm) {
			return role
		}
	}
	return RoleSuperAdmin
}

// SetRolePermissions replaces the grants of role. The store is written
// first; the in-memory policy follows only on success.
func (e *Enforcer) SetRolePermissions(ctx context.Context, role string, perms []string) error {
	if !ValidRole(role) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if role == RoleSuperAdmin {
		return ErrImmutableRole
	}
	uniq := make([]string, 0, len(perms))
	for _, p := range perms {
		if !ValidPermission(p) {
			return fmt.Errorf("%w: %q", ErrUnknownPermission, p)
		}
		if !slices.Contains(uniq, p) {
			uniq = append(uniq, p)
		}
	}

	if err := e.store.ReplaceRolePermissions(ctx, role, uniq); err != nil {
		return fmt.Errorf("store %s permissions: %w", role, err)
	}
	if _, err := e.enforcer.RemoveFilteredPolicy(0, role); err != nil {
		return fmt.Errorf("clear %s policy: %w", role, err)
	}
	return e.load(role, uniq)
}

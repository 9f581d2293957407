// Package rbac decides which roles may perform which actions.
package rbac

import "slices"

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
)

// Roles are ordered from least to most privileged.
var Roles = []string{RoleStaff, RoleAdmin, RoleSuperAdmin}

// PermissionGroup is a named set of permissions shown together.
type PermissionGroup struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

var Groups = []PermissionGroup{
	{"User Management", []string{"view users", "manage users", "impersonate users"}},
	{"Role Management", []string{"view roles", "manage roles"}},
	{"Permission Management", []string{"view permissions", "manage permissions"}},
	{"Application Settings", []string{"view settings", "manage settings"}},
	{"Deals", []string{"view deals", "manage deals", "delete deals"}},
	{"Leads", []string{"view leads", "manage leads", "delete leads"}},
	{"Properties", []string{"view properties", "manage properties", "delete properties"}},
	{"Campaigns", []string{"view campaigns", "manage campaigns", "delete campaigns"}},
	{"Organizations", []string{"view organizations", "manage organizations", "delete organizations"}},
}

// AllPermissions lists every known permission in group order.
func AllPermissions() []string {
	var out []string
	for _, g := range Groups {
		out = append(out, g.Permissions...)
	}
	return out
}

func ValidRole(role string) bool {
	return slices.Contains(Roles, role)
}

func ValidPermission(perm string) bool {
	return slices.Contains(AllPermissions(), perm)
}

// DefaultGrants is the initial role to permission mapping.
func DefaultGrants() map[string][]string {
	grant := func(verbs []string, nouns ...string) []string {
		var out []string
		for _, n := range nouns {
			for _, v := range verbs {
				out = append(out, v+" "+n)
			}
		}
		return out
	}
	return map[string][]string{
		RoleSuperAdmin: AllPermissions(),
		RoleAdmin: grant([]string{"view", "manage"},
			"users", "roles", "permissions", "settings", "deals", "leads", "properties", "campaigns", "organizations"),
		RoleStaff: grant([]string{"view", "manage"}, "deals", "leads", "properties", "campaigns"),
	}
}

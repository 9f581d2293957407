package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

var (
	organizationColumns = columnsOf[models.Organization]()
	userColumns         = columnsOf[models.User]()
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the connection pool for TenantTable registration.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Organizations ---

// scopeOrganizations restricts a scoped principal to its own organization.
func scopeOrganizations(q sq.SelectBuilder, p *tenant.Principal) sq.SelectBuilder {
	if !p.Scoped() {
		return q
	}
	return q.Where(sq.Eq{"id": p.OrganizationID})
}

// RegisterOrganization creates an organization together with its first user.
func (s *PostgresStore) RegisterOrganization(ctx context.Context, org *models.Organization, owner *models.User) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := insertOrganization(ctx, tx, org); err != nil {
			return err
		}
		owner.OrganizationID = &org.ID
		return insertUser(ctx, tx, owner)
	})
}

func (s *PostgresStore) CreateOrganization(ctx context.Context, org *models.Organization) error {
	return insertOrganization(ctx, s.pool, org)
}

func insertOrganization(ctx context.Context, db DB, org *models.Organization) error {
	slug, err := uniqueSlug(ctx, db, org.Slug)
	if err != nil {
		return err
	}
	org.Slug = slug
	if org.SubscriptionStatus == "" {
		org.SubscriptionStatus = models.SubscriptionNew
	}
	if org.Timezone == "" {
		org.Timezone = "UTC"
	}

	q := psql.Insert("organizations").SetMap(map[string]any{
		"name":                org.Name,
		"slug":                org.Slug,
		"subscription_status": org.SubscriptionStatus,
		"industry":            org.Industry,
		"organization_size":   org.OrganizationSize,
		"business_email":      org.BusinessEmail,
		"business_phone":      org.BusinessPhone,
		"website":             org.Website,
		"timezone":            org.Timezone,
	}).Suffix("RETURNING " + strings.Join(organizationColumns, ", "))

	created, err := selectOne[models.Organization](ctx, db, "create organization", q)
	if err != nil {
		return err
	}
	*org = *created
	return nil
}

// uniqueSlug returns base, or base suffixed with the next free number.
func uniqueSlug(ctx context.Context, db DB, base string) (string, error) {
	if base == "" {
		base = "organization"
	}
	rows, err := db.Query(ctx,
		`SELECT slug FROM organizations WHERE slug = $1 OR slug LIKE $2`,
		base, likeEscaper.Replace(base)+"-%")
	if err != nil {
		return "", wrapErr("check organization slug", err)
	}
	taken, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return "", wrapErr("check organization slug", err)
	}

	used := make(map[string]bool, len(taken))
	for _, t := range taken {
		used[t] = true
	}
	slug := base
	for n := 2; used[slug]; n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	return slug, nil
}

func (s *PostgresStore) GetOrganization(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.Organization, error) {
	q := scopeOrganizations(psql.Select(organizationColumns...).From("organizations").Where(sq.Eq{"id": id}), p)
	return selectOne[models.Organization](ctx, s.pool, "get organization", q)
}

func (s *PostgresStore) ListOrganizations(ctx context.Context, p *tenant.Principal, q ListQuery) ([]*models.Organization, int, error) {
	rows := scopeOrganizations(psql.Select(organizationColumns...).From("organizations"), p)
	count := scopeOrganizations(psql.Select("COUNT(*)").From("organizations"), p)

	var where []sq.Sqlizer
	if len(q.Filters) > 0 {
		where = append(where, filterPredicate(q.Filters))
	}
	if sp := searchPredicate(q.Search, []string{"name", "slug", "business_email"}); sp != nil {
		where = append(where, sp)
	}
	return selectPage[models.Organization](ctx, s.pool, "list organizations", rows, count, where, q)
}

func (s *PostgresStore) UpdateOrganization(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*models.Organization, error) {
	if len(values) == 0 {
		return s.GetOrganization(ctx, p, id)
	}
	if !p.CanSee(id) {
		return nil, ErrNotFound
	}
	set := make(map[string]any, len(values)+1)
	for k, v := range values {
		set[k] = v
	}
	delete(set, "id")
	set["updated_at"] = sq.Expr("now()")

	q := psql.Update("organizations").SetMap(set).Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(organizationColumns, ", "))
	return selectOne[models.Organization](ctx, s.pool, "update organization", q)
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	return insertUser(ctx, s.pool, u)
}

func insertUser(ctx context.Context, db DB, u *models.User) error {
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	q := psql.Insert("users").SetMap(map[string]any{
		"organization_id": u.OrganizationID,
		"email":           u.Email,
		"password_hash":   u.PasswordHash,
		"first_name":      u.FirstName,
		"last_name":       u.LastName,
		"phone":           u.Phone,
		"roles":           u.Roles,
		"status":          u.Status,
	}).Suffix("RETURNING " + strings.Join(userColumns, ", "))

	created, err := selectOne[models.User](ctx, db, "create user", q)
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

// GetUserByID looks a user up without tenant scope. Only authentication uses it.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id})
	return selectOne[models.User](ctx, s.pool, "get user by id", q)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := psql.Select(userColumns...).From("users").Where(sq.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
	return selectOne[models.User](ctx, s.pool, "get user by email", q)
}

func (s *PostgresStore) GetUser(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.User, error) {
	q := tenant.ScopeSelect(psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id}), p)
	return selectOne[models.User](ctx, s.pool, "get user", q)
}

// ListUsers supports a "role" filter matched against the roles array; other
// filters are column equality.
func (s *PostgresStore) ListUsers(ctx context.Context, p *tenant.Principal, q ListQuery) ([]*models.User, int, error) {
	rows := tenant.ScopeSelect(psql.Select(userColumns...).From("users"), p)
	count := tenant.ScopeSelect(psql.Select("COUNT(*)").From("users"), p)

	filters := make(map[string]any, len(q.Filters))
	var where []sq.Sqlizer
	for k, v := range q.Filters {
		if k == "role" {
			where = append(where, sq.Expr("? = ANY(roles)", v))
			continue
		}
		filters[k] = v
	}
	if len(filters) > 0 {
		where = append(where, filterPredicate(filters))
	}
	if sp := searchPredicate(q.Search, []string{"email", "first_name", "last_name"}); sp != nil {
		where = append(where, sp)
	}
	return selectPage[models.User](ctx, s.pool, "list users", rows, count, where, q)
}

func (s *PostgresStore) UpdateUser(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*models.User, error) {
	set := make(map[string]any, len(values)+1)
	for k, v := range values {
		set[k] = v
	}
	tenant.Guard(set)
	delete(set, "id")
	if len(set) == 0 {
		return s.GetUser(ctx, p, id)
	}
	set["updated_at"] = sq.Expr("now()")

	q := tenant.ScopeUpdate(psql.Update("users").SetMap(set).Where(sq.Eq{"id": id}), p).
		Suffix("RETURNING " + strings.Join(userColumns, ", "))
	return selectOne[models.User](ctx, s.pool, "update user", q)
}

// DetachUser removes a user from an organization. A detached user is also
// deactivated so it can never act without a tenant.
func (s *PostgresStore) DetachUser(ctx context.Context, p *tenant.Principal, orgID, userID uuid.UUID) error {
	if !p.CanSee(orgID) {
		return ErrNotFound
	}
	q := psql.Update("users").
		Set("organization_id", nil).
		Set("status", models.UserStatusInactive).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": userID, "organization_id": orgID})
	n, err := exec(ctx, s.pool, "detach user", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := exec(ctx, s.pool, "touch last login",
		psql.Update("users").Set("last_login_at", sq.Expr("now()")).Where(sq.Eq{"id": id}))
	return err
}

// --- Role permissions ---

type rolePermission struct {
	Role       string `db:"role"`
	Permission string `db:"permission"`
}

func (s *PostgresStore) ListRolePermissions(ctx context.Context) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, permission FROM role_permissions ORDER BY role, permission`)
	if err != nil {
		return nil, wrapErr("list role permissions", err)
	}
	grants, err := pgx.CollectRows(rows, pgx.RowToStructByName[rolePermission])
	if err != nil {
		return nil, wrapErr("list role permissions", err)
	}

	out := make(map[string][]string)
	for _, g := range grants {
		out[g.Role] = append(out[g.Role], g.Permission)
	}
	return out, nil
}

// ReplaceRolePermissions swaps the full permission set of role atomically.
func (s *PostgresStore) ReplaceRolePermissions(ctx context.Context, role string, permissions []string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := exec(ctx, tx, "clear role permissions",
			psql.Delete("role_permissions").Where(sq.Eq{"role": role})); err != nil {
			return err
		}
		if len(permissions) == 0 {
			return nil
		}
		ins := psql.Insert("role_permissions").Columns("role", "permission")
		for _, perm := range permissions {
			ins = ins.Values(role, perm)
		}
		_, err := exec(ctx, tx, "grant role permissions", ins.Suffix("ON CONFLICT DO NOTHING"))
		return err
	})
}

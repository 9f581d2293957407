package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
)

const ownerColumn = "user_id"

var readOnlyColumns = []string{"id", "created_at", "updated_at"}

// TenantTable is a table whose rows belong to one organization. Every
// statement it issues passes through the tenant scope, and every insert is
// stamped with the acting principal's organization.
//
// T must be a struct whose db tags name the table's columns.
type TenantTable[T any] struct {
	db        DB
	name      string
	columns   []string
	returning string
	search    []string
	personal  bool
}

// NewTenantTable registers T as stored in table name. search lists the
// columns matched by ListQuery.Search.
func NewTenantTable[T any](db DB, name string, search ...string) *TenantTable[T] {
	cols := columnsOf[T]()
	if !slices.Contains(cols, tenant.Column) {
		panic(fmt.Sprintf("store: %s has no %s column", name, tenant.Column))
	}
	return &TenantTable[T]{
		db:        db,
		name:      name,
		columns:   cols,
		returning: "RETURNING " + strings.Join(cols, ", "),
		search:    search,
	}
}

// PerUser narrows every statement to rows owned by the acting user, on top
// of the tenant scope. Creates always record the acting user as owner.
func (t *TenantTable[T]) PerUser() *TenantTable[T] {
	if !slices.Contains(t.columns, ownerColumn) {
		panic(fmt.Sprintf("store: %s has no %s column", t.name, ownerColumn))
	}
	t.personal = true
	return t
}

func (t *TenantTable[T]) Name() string { return t.name }

// owned is the per-user predicate, or nil when rows are shared.
func (t *TenantTable[T]) owned(p *tenant.Principal) sq.Sqlizer {
	if !t.personal || p == nil {
		return nil
	}
	return sq.Eq{ownerColumn: p.UserID}
}

func (t *TenantTable[T]) List(ctx context.Context, p *tenant.Principal, q ListQuery) ([]*T, int, error) {
	if err := t.checkColumns(q.Filters); err != nil {
		return nil, 0, err
	}
	rows := tenant.ScopeSelect(psql.Select(t.columns...).From(t.name), p)
	count := tenant.ScopeSelect(psql.Select("COUNT(*)").From(t.name), p)

	where := []sq.Sqlizer{t.owned(p)}
	if len(q.Filters) > 0 {
		where = append(where, filterPredicate(q.Filters))
	}
	if s := searchPredicate(q.Search, t.search); s != nil {
		where = append(where, s)
	}
	return selectPage[T](ctx, t.db, "list "+t.name, rows, count, where, q)
}

func (t *TenantTable[T]) Get(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*T, error) {
	q := tenant.ScopeSelect(psql.Select(t.columns...).From(t.name).Where(sq.Eq{"id": id}), p)
	if w := t.owned(p); w != nil {
		q = q.Where(w)
	}
	return selectOne[T](ctx, t.db, "get "+t.name, q)
}

// Create inserts a row. The organization comes from the principal when it
// has one; the creating user is recorded when not given explicitly.
func (t *TenantTable[T]) Create(ctx context.Context, p *tenant.Principal, values map[string]any) (*T, error) {
	row := maps.Clone(values)
	if row == nil {
		row = map[string]any{}
	}
	if err := tenant.Stamp(row, p); err != nil {
		return nil, err
	}
	if t.personal && p != nil {
		row[ownerColumn] = p.UserID
	} else if _, ok := row[ownerColumn]; !ok && p != nil && p.UserID != uuid.Nil && slices.Contains(t.columns, ownerColumn) {
		row[ownerColumn] = p.UserID
	}
	if err := t.checkWritable(row); err != nil {
		return nil, err
	}
	q := psql.Insert(t.name).SetMap(row).Suffix(t.returning)
	return selectOne[T](ctx, t.db, "create "+t.name, q)
}

// Update applies a partial update. The tenant column is never changed.
func (t *TenantTable[T]) Update(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*T, error) {
	row := maps.Clone(values)
	tenant.Guard(row)
	if len(row) == 0 {
		return t.Get(ctx, p, id)
	}
	if err := t.checkWritable(row); err != nil {
		return nil, err
	}
	if t.personal {
		delete(row, ownerColumn)
	}
	row["updated_at"] = sq.Expr("now()")
	q := tenant.ScopeUpdate(psql.Update(t.name).SetMap(row).Where(sq.Eq{"id": id}), p)
	if w := t.owned(p); w != nil {
		q = q.Where(w)
	}
	q = q.Suffix(t.returning)
	return selectOne[T](ctx, t.db, "update "+t.name, q)
}

func (t *TenantTable[T]) Delete(ctx context.Context, p *tenant.Principal, id uuid.UUID) error {
	q := tenant.ScopeDelete(psql.Delete(t.name).Where(sq.Eq{"id": id}), p)
	if w := t.owned(p); w != nil {
		q = q.Where(w)
	}
	n, err := exec(ctx, t.db, "delete "+t.name, q)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *TenantTable[T]) checkColumns(values map[string]any) error {
	for k := range values {
		if !slices.Contains(t.columns, k) {
			return fmt.Errorf("%s: unknown column %q", t.name, k)
		}
	}
	return nil
}

func (t *TenantTable[T]) checkWritable(values map[string]any) error {
	if err := t.checkColumns(values); err != nil {
		return err
	}
	for _, c := range readOnlyColumns {
		if _, ok := values[c]; ok {
			return fmt.Errorf("%s: column %q is read-only", t.name, c)
		}
	}
	return nil
}

package tenant

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

func predicate(p *Principal) sq.Eq {
	return sq.Eq{Column: p.OrganizationID}
}

// ScopeSelect adds the organization predicate for scoped principals.
func ScopeSelect(q sq.SelectBuilder, p *Principal) sq.SelectBuilder {
	if !p.Scoped() {
		return q
	}
	return q.Where(predicate(p))
}

func ScopeUpdate(q sq.UpdateBuilder, p *Principal) sq.UpdateBuilder {
	if !p.Scoped() {
		return q
	}
	return q.Where(predicate(p))
}

func ScopeDelete(q sq.DeleteBuilder, p *Principal) sq.DeleteBuilder {
	if !p.Scoped() {
		return q
	}
	return q.Where(predicate(p))
}

// Stamp sets the owning organization of a row about to be inserted.
// A scoped principal always wins over any client supplied value. Unscoped
// callers must name the organization themselves.
func Stamp(values map[string]any, p *Principal) error {
	if p.Scoped() {
		values[Column] = p.OrganizationID
		return nil
	}
	switch v := values[Column].(type) {
	case uuid.UUID:
		if v != uuid.Nil {
			return nil
		}
	case *uuid.UUID:
		if v != nil && *v != uuid.Nil {
			values[Column] = *v
			return nil
		}
	case string:
		if id, err := uuid.Parse(v); err == nil && id != uuid.Nil {
			values[Column] = id
			return nil
		}
	}
	delete(values, Column)
	return ErrOrganizationRequired
}

// Guard removes the tenant column from an update payload; ownership is
// fixed at creation.
func Guard(values map[string]any) {
	delete(values, Column)
}

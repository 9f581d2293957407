package tenant

import (
	"context"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orgA = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func TestScopeSelect_ScopedPrincipal(t *testing.T) {
	p := &Principal{UserID: uuid.New(), OrganizationID: orgA}
	q := ScopeSelect(sq.Select("id").From("leads").PlaceholderFormat(sq.Dollar), p)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM leads WHERE organization_id = $1", sql)
	assert.Equal(t, []any{orgA.String()}, args)
}

func TestScopeSelect_NilPrincipalUnfiltered(t *testing.T) {
	q := ScopeSelect(sq.Select("id").From("leads"), nil)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM leads", sql)
	assert.Empty(t, args)
}

func TestScopeSelect_PrincipalWithoutOrganizationUnfiltered(t *testing.T) {
	p := &Principal{UserID: uuid.New(), SuperAdmin: true}
	q := ScopeSelect(sq.Select("id").From("leads"), p)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM leads", sql)
}

func TestScopeUpdateAndDelete(t *testing.T) {
	p := &Principal{OrganizationID: orgA}
	id := uuid.New()

	upd, args, err := ScopeUpdate(sq.Update("deals").Set("status", "closed").Where(sq.Eq{"id": id}), p).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE deals SET status = ? WHERE id = ? AND organization_id = ?", upd)
	assert.Equal(t, []any{"closed", id.String(), orgA.String()}, args)

	del, args, err := ScopeDelete(sq.Delete("deals").Where(sq.Eq{"id": id}), p).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM deals WHERE id = ? AND organization_id = ?", del)
	assert.Equal(t, []any{id.String(), orgA.String()}, args)
}

func TestStamp_OverridesClientValue(t *testing.T) {
	other := uuid.New()
	values := map[string]any{"name": "x", Column: other}

	require.NoError(t, Stamp(values, &Principal{OrganizationID: orgA}))
	assert.Equal(t, orgA, values[Column])
}

func TestStamp_UnscopedKeepsSuppliedValue(t *testing.T) {
	other := uuid.New()

	values := map[string]any{Column: &other}
	require.NoError(t, Stamp(values, &Principal{SuperAdmin: true}))
	assert.Equal(t, other, values[Column])

	values = map[string]any{Column: other.String()}
	require.NoError(t, Stamp(values, nil))
	assert.Equal(t, other, values[Column])
}

func TestStamp_UnscopedWithoutValueFails(t *testing.T) {
	values := map[string]any{Column: (*uuid.UUID)(nil)}
	assert.ErrorIs(t, Stamp(values, nil), ErrOrganizationRequired)
	assert.NotContains(t, values, Column)
}

func TestGuard(t *testing.T) {
	values := map[string]any{"status": "new", Column: uuid.New()}
	Guard(values)
	assert.Equal(t, map[string]any{"status": "new"}, values)
}

func TestPrincipal_CanSee(t *testing.T) {
	assert.True(t, (&Principal{OrganizationID: orgA}).CanSee(orgA))
	assert.False(t, (&Principal{OrganizationID: orgA}).CanSee(uuid.New()))
	assert.True(t, (&Principal{SuperAdmin: true}).CanSee(uuid.New()))
	var p *Principal
	assert.True(t, p.CanSee(orgA))
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	p := &Principal{UserID: uuid.New(), Roles: []string{"staff"}}
	ctx := WithPrincipal(context.Background(), p)
	assert.Same(t, p, FromContext(ctx))
	assert.True(t, p.HasRole("staff"))
	assert.False(t, p.HasRole("admin"))
}

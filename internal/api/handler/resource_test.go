package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepo mimics TenantTable's scoping over an in-memory slice.
type mockRepo struct {
	leads     []*models.Lead
	lastQuery store.ListQuery
	lastVals  map[string]any
	err       error
}

func (m *mockRepo) visible(p *tenant.Principal) []*models.Lead {
	var out []*models.Lead
	for _, l := range m.leads {
		if p.CanSee(l.OrganizationID) {
			out = append(out, l)
		}
	}
	return out
}

func (m *mockRepo) List(_ context.Context, p *tenant.Principal, q store.ListQuery) ([]*models.Lead, int, error) {
	m.lastQuery = q
	if m.err != nil {
		return nil, 0, m.err
	}
	v := m.visible(p)
	return v, len(v), nil
}

func (m *mockRepo) Get(_ context.Context, p *tenant.Principal, id uuid.UUID) (*models.Lead, error) {
	for _, l := range m.visible(p) {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockRepo) Create(_ context.Context, p *tenant.Principal, values map[string]any) (*models.Lead, error) {
	m.lastVals = values
	if m.err != nil {
		return nil, m.err
	}
	if err := tenant.Stamp(values, p); err != nil {
		return nil, err
	}
	l := &models.Lead{ID: uuid.New(), OrganizationID: values[tenant.Column].(uuid.UUID), Status: "new"}
	l.FirstName, _ = values["first_name"].(string)
	m.leads = append(m.leads, l)
	return l, nil
}

func (m *mockRepo) Update(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*models.Lead, error) {
	m.lastVals = values
	l, err := m.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if s, ok := values["status"].(string); ok {
		l.Status = s
	}
	return l, nil
}

func (m *mockRepo) Delete(ctx context.Context, p *tenant.Principal, id uuid.UUID) error {
	_, err := m.Get(ctx, p, id)
	return err
}

func newLeads(repo *mockRepo) *Resource[models.Lead, LeadInput] {
	return NewResource[models.Lead, LeadInput](repo, "lead", testPager, false, "status", "lead_type")
}

func seededRepo() (*mockRepo, *models.Lead, *models.Lead) {
	mine := &models.Lead{ID: uuid.New(), OrganizationID: orgA, FirstName: "Ada", Status: "new"}
	theirs := &models.Lead{ID: uuid.New(), OrganizationID: orgB, FirstName: "Bob", Status: "new"}
	return &mockRepo{leads: []*models.Lead{mine, theirs}}, mine, theirs
}

func TestResourceList_ScopedAndPaginated(t *testing.T) {
	repo, mine, _ := seededRepo()
	h := newLeads(repo)

	r := newRequest(t, http.MethodGet, "/leads?page=1&per_page=500&status=new&search=ada&ignored=x", nil, staffPrincipal())
	rec, env := serve(t, h.List, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "Operation successful", env.Message)

	var items []models.Lead
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, mine.ID, items[0].ID)

	assert.EqualValues(t, 1, env.Meta["total"])
	assert.EqualValues(t, 50, env.Meta["per_page"])
	assert.Equal(t, 50, repo.lastQuery.PerPage)
	assert.Equal(t, "ada", repo.lastQuery.Search)
	assert.Equal(t, map[string]any{"status": "new"}, repo.lastQuery.Filters)
}

func TestResourceList_EmptyIsArray(t *testing.T) {
	h := newLeads(&mockRepo{})
	_, env := serve(t, h.List, newRequest(t, http.MethodGet, "/leads", nil, staffPrincipal()))
	assert.JSONEq(t, "[]", string(env.Data))
	assert.EqualValues(t, 0, env.Meta["from"])
}

func TestResourceList_BadUUIDFilter(t *testing.T) {
	h := newLeads(&mockRepo{})
	rec, env := serve(t, h.List, newRequest(t, http.MethodGet, "/leads?organization_id=nope", nil, superAdmin()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, fieldErrorsOf(env), "organization_id")
}

func TestResourceGet_OtherTenantIsNotFound(t *testing.T) {
	repo, mine, theirs := seededRepo()
	h := newLeads(repo)

	rec, _ := serve(t, h.Get, newRequest(t, http.MethodGet, "/", nil, staffPrincipal(), "id", mine.ID.String()))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := serve(t, h.Get, newRequest(t, http.MethodGet, "/", nil, staffPrincipal(), "id", theirs.ID.String()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", env.Error.Code)
	assert.Equal(t, theirs.ID.String(), env.Error.Details["resource_id"])

	rec, _ = serve(t, h.Get, newRequest(t, http.MethodGet, "/", nil, staffPrincipal(), "id", "not-a-uuid"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResourceCreate_StampsPrincipalOrganization(t *testing.T) {
	repo := &mockRepo{}
	h := newLeads(repo)
	body := map[string]any{
		"lead_type":       "buyer",
		"first_name":      "Ada",
		"last_name":       "Lovelace",
		"organization_id": orgB.String(),
	}

	rec, env := serve(t, h.Create, newRequest(t, http.MethodPost, "/leads", body, staffPrincipal()))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Lead created successfully", env.Message)
	var got models.Lead
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, orgA, got.OrganizationID)
	assert.NotContains(t, repo.lastVals, "email")
}

func TestResourceCreate_SuperAdminMustNameOrganization(t *testing.T) {
	h := newLeads(&mockRepo{})
	body := map[string]any{"lead_type": "seller", "first_name": "Ada", "last_name": "Lovelace"}

	rec, env := serve(t, h.Create, newRequest(t, http.MethodPost, "/leads", body, superAdmin()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, fieldErrorsOf(env), "organization_id")

	body["organization_id"] = orgB.String()
	rec, env = serve(t, h.Create, newRequest(t, http.MethodPost, "/leads", body, superAdmin()))
	require.Equal(t, http.StatusCreated, rec.Code)
	var got models.Lead
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, orgB, got.OrganizationID)
}

func TestResourceCreate_Validation(t *testing.T) {
	h := newLeads(&mockRepo{})

	body := map[string]any{"lead_type": "tenant", "first_name": " ", "email": "nope", "next_action_date": "12/01/2024"}
	rec, env := serve(t, h.Create, newRequest(t, http.MethodPost, "/leads", body, staffPrincipal()))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	fe := fieldErrorsOf(env)
	assert.Contains(t, fe, "lead_type")
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "next_action_date")

	body = map[string]any{"lead_type": "buyer", "first_name": " "}
	_, env = serve(t, h.Create, newRequest(t, http.MethodPost, "/leads", body, staffPrincipal()))
	fe = fieldErrorsOf(env)
	assert.Equal(t, []any{"The first name field is required."}, fe["first_name"])
	assert.Equal(t, []any{"The last name field is required."}, fe["last_name"])
}

func TestResourceCreate_MalformedBody(t *testing.T) {
	h := newLeads(&mockRepo{})

	rec, env := serve(t, h.Create, newRequest(t, http.MethodPost, "/leads", "{", staffPrincipal()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	rec, env = serve(t, h.Create, newRequest(t, http.MethodPost, "/leads", `{"asking_price":"lots"}`, staffPrincipal()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "asking_price", env.Error.Details["field"])
}

func TestResourceCreate_ConstraintViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", Message: "insert violates foreign key", Detail: `Key (lead_id)=(x) is not present in table "leads".`}
	h := newLeads(&mockRepo{err: fmt.Errorf("create leads: %w", pgErr)})
	body := map[string]any{"lead_type": "buyer", "first_name": "A", "last_name": "B"}

	rec, env := serve(t, h.Create, newRequest(t, http.MethodPost, "/leads", body, staffPrincipal()))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DATABASE_ERROR", env.Error.Code)
}

func TestResourceList_StoreFailureHidesError(t *testing.T) {
	h := newLeads(&mockRepo{err: errors.New("connection reset")})
	rec, env := serve(t, h.List, newRequest(t, http.MethodGet, "/leads", nil, staffPrincipal()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, env.Error.Details, "debug_info")
}

func TestResourceUpdate_IgnoresOrganization(t *testing.T) {
	repo, mine, theirs := seededRepo()
	h := newLeads(repo)

	body := map[string]any{"status": "qualified", "organization_id": orgB.String()}
	rec, env := serve(t, h.Update, newRequest(t, http.MethodPut, "/", body, staffPrincipal(), "id", mine.ID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lead updated successfully", env.Message)
	assert.Equal(t, "qualified", mine.Status)

	rec, _ = serve(t, h.Update, newRequest(t, http.MethodPut, "/", body, staffPrincipal(), "id", theirs.ID.String()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "new", theirs.Status)
}

func TestResourceDelete(t *testing.T) {
	repo, mine, theirs := seededRepo()
	h := newLeads(repo)

	rec, env := serve(t, h.Delete, newRequest(t, http.MethodDelete, "/", nil, staffPrincipal(), "id", mine.ID.String()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lead deleted successfully", env.Message)
	assert.JSONEq(t, "null", string(env.Data))

	rec, _ = serve(t, h.Delete, newRequest(t, http.MethodDelete, "/", nil, staffPrincipal(), "id", theirs.ID.String()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResource_RequiresPrincipal(t *testing.T) {
	h := newLeads(&mockRepo{})
	rec, _ := serve(t, h.List, newRequest(t, http.MethodGet, "/leads", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

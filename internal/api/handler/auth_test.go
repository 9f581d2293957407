package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/auth"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAccounts struct {
	users   map[string]*models.User
	orgs    map[uuid.UUID]*models.Organization
	touched []uuid.UUID
	regErr  error
}

func newMockAccounts() *mockAccounts {
	return &mockAccounts{users: map[string]*models.User{}, orgs: map[uuid.UUID]*models.Organization{}}
}

func (m *mockAccounts) RegisterOrganization(_ context.Context, org *models.Organization, owner *models.User) error {
	if m.regErr != nil {
		return m.regErr
	}
	org.ID = uuid.New()
	org.SubscriptionStatus = models.SubscriptionNew
	m.orgs[org.ID] = org
	owner.ID = uuid.New()
	owner.OrganizationID = &org.ID
	owner.Status = models.UserStatusActive
	m.users[owner.Email] = owner
	return nil
}

func (m *mockAccounts) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockAccounts) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockAccounts) GetOrganization(_ context.Context, p *tenant.Principal, id uuid.UUID) (*models.Organization, error) {
	if org, ok := m.orgs[id]; ok && p.CanSee(id) {
		return org, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockAccounts) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	m.touched = append(m.touched, id)
	return nil
}

type mockRevoker struct {
	ids map[string]time.Duration
	err error
}

func (m *mockRevoker) RevokeToken(_ context.Context, id string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	if m.ids == nil {
		m.ids = map[string]time.Duration{}
	}
	m.ids[id] = ttl
	return nil
}

type staticPerms map[string][]string

func (s staticPerms) Permissions(role string) []string { return s[role] }

func newAuthHandler(s *mockAccounts) (*Auth, *auth.Tokens) {
	tokens := auth.NewTokens("0123456789abcdef0123456789abcdef", "dealflow-test", time.Hour)
	perms := staticPerms{"admin": {"view users", "manage users"}, "staff": {"view leads", "view users"}}
	return NewAuth(s, tokens, perms, &mockRevoker{}, "root@example.com", false), tokens
}

func registerBody() map[string]any {
	return map[string]any{
		"organization_name":     "Acme Realty",
		"first_name":            "Ada",
		"last_name":             "Lovelace",
		"email":                 "ada@example.com",
		"password":              "s3cretpass",
		"password_confirmation": "s3cretpass",
	}
}

func TestRegister(t *testing.T) {
	s := newMockAccounts()
	h, tokens := newAuthHandler(s)

	rec, env := serve(t, h.Register, newRequest(t, http.MethodPost, "/register", registerBody(), nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		User         models.User         `json:"user"`
		Organization models.Organization `json:"organization"`
		Token        string              `json:"token"`
		TokenType    string              `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "acme-realty", body.Organization.Slug)
	assert.Equal(t, []string{"admin"}, body.User.Roles)
	assert.Equal(t, "Bearer", body.TokenType)
	assert.NotContains(t, string(env.Data), "password")

	claims, err := tokens.Parse(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.User.ID.String(), claims.Subject)
	assert.Equal(t, body.Organization.ID.String(), claims.OrganizationID)

	require.NoError(t, auth.CheckPassword(s.users["ada@example.com"].PasswordHash, "s3cretpass"))
}

func TestRegister_Validation(t *testing.T) {
	h, _ := newAuthHandler(newMockAccounts())
	body := registerBody()
	body["password_confirmation"] = "different"
	body["email"] = "bad"
	delete(body, "organization_name")

	rec, env := serve(t, h.Register, newRequest(t, http.MethodPost, "/register", body, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fe := fieldErrorsOf(env)
	assert.Contains(t, fe, "password_confirmation")
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "organization_name")
}

func TestLogin(t *testing.T) {
	s := newMockAccounts()
	h, _ := newAuthHandler(s)
	_, _ = serve(t, h.Register, newRequest(t, http.MethodPost, "/register", registerBody(), nil))

	good := map[string]any{"email": "ada@example.com", "password": "s3cretpass"}
	rec, env := serve(t, h.Login, newRequest(t, http.MethodPost, "/login", good, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Login successful", env.Message)
	assert.Len(t, s.touched, 1)

	bad := map[string]any{"email": "ada@example.com", "password": "wrong-password"}
	rec, env = serve(t, h.Login, newRequest(t, http.MethodPost, "/login", bad, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED_ACCESS", env.Error.Code)

	unknown := map[string]any{"email": "nobody@example.com", "password": "s3cretpass"}
	rec, _ = serve(t, h.Login, newRequest(t, http.MethodPost, "/login", unknown, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.users["ada@example.com"].Status = models.UserStatusSuspended
	rec, env = serve(t, h.Login, newRequest(t, http.MethodPost, "/login", good, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN_ACCESS", env.Error.Code)
}

func TestCurrentUser(t *testing.T) {
	s := newMockAccounts()
	h, _ := newAuthHandler(s)
	_, _ = serve(t, h.Register, newRequest(t, http.MethodPost, "/register", registerBody(), nil))
	u := s.users["ada@example.com"]

	p := auth.Principal(u, "root@example.com")
	p.Roles = []string{"admin", "staff"}
	rec, env := serve(t, h.CurrentUser, newRequest(t, http.MethodGet, "/user", nil, p))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User         models.User          `json:"user"`
		Organization *models.Organization `json:"organization"`
		SuperAdmin   bool                 `json:"is_super_admin"`
		Permissions  []string             `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, u.ID, body.User.ID)
	require.NotNil(t, body.Organization)
	assert.Equal(t, "Acme Realty", body.Organization.Name)
	assert.False(t, body.SuperAdmin)
	assert.Equal(t, []string{"manage users", "view leads", "view users"}, body.Permissions)
}

func TestLogin_SubscriptionNotActive(t *testing.T) {
	s := newMockAccounts()
	h, _ := newAuthHandler(s)
	_, _ = serve(t, h.Register, newRequest(t, http.MethodPost, "/register", registerBody(), nil))
	admin := s.users["ada@example.com"]
	org := s.orgs[*admin.OrganizationID]
	require.Equal(t, models.SubscriptionNew, org.SubscriptionStatus)

	add := func(email string, roles ...string) *models.User {
		hash, err := auth.HashPassword("s3cretpass")
		require.NoError(t, err)
		u := &models.User{
			ID: uuid.New(), Email: email, PasswordHash: hash, OrganizationID: &org.ID,
			Roles: roles, Status: models.UserStatusActive,
		}
		s.users[email] = u
		return u
	}
	staff := add("sam@example.com", "staff")
	add("root@example.com", "staff")
	add("rita@example.com", "super_admin")

	login := func(email string) (int, envelope) {
		body := map[string]any{"email": email, "password": "s3cretpass"}
		rec, env := serve(t, h.Login, newRequest(t, http.MethodPost, "/login", body, nil))
		return rec.Code, env
	}

	code, env := login("sam@example.com")
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN_ACCESS", env.Error.Code)
	ctx, _ := env.Error.Details["context"].(map[string]any)
	require.NotNil(t, ctx, env.Error.Details)
	assert.Equal(t, "inactive", ctx["account_status"])
	assert.Equal(t, staff.ID.String(), ctx["user_id"])
	assert.Equal(t, "Organization subscription is not active", ctx["deactivation_reason"])
	assert.Empty(t, s.touched)

	for _, email := range []string{"ada@example.com", "root@example.com", "rita@example.com"} {
		code, _ := login(email)
		assert.Equal(t, http.StatusOK, code, email)
	}

	org.SubscriptionStatus = models.SubscriptionActive
	code, _ = login("sam@example.com")
	assert.Equal(t, http.StatusOK, code)
}

func TestLogin_UnknownEmailMatchesWrongPassword(t *testing.T) {
	s := newMockAccounts()
	h, _ := newAuthHandler(s)
	_, _ = serve(t, h.Register, newRequest(t, http.MethodPost, "/register", registerBody(), nil))

	wrong := map[string]any{"email": "ada@example.com", "password": "wrong-password"}
	_, known := serve(t, h.Login, newRequest(t, http.MethodPost, "/login", wrong, nil))
	unknown := map[string]any{"email": "nobody@example.com", "password": "wrong-password"}
	rec, missing := serve(t, h.Login, newRequest(t, http.MethodPost, "/login", unknown, nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, known.Message, missing.Message)
	assert.Equal(t, known.Error.Details, missing.Error.Details)
	ctx, _ := missing.Error.Details["context"].(map[string]any)
	assert.Equal(t, "invalid_credentials", ctx["reason"])
}

func TestLogout(t *testing.T) {
	s := newMockAccounts()
	h, tokens := newAuthHandler(s)
	revoker := &mockRevoker{}
	h.revoker = revoker
	_, _ = serve(t, h.Register, newRequest(t, http.MethodPost, "/register", registerBody(), nil))
	u := s.users["ada@example.com"]

	raw, _, err := tokens.Issue(u)
	require.NoError(t, err)
	claims, err := tokens.Parse(raw)
	require.NoError(t, err)

	r := newRequest(t, http.MethodPost, "/logout", nil, auth.Principal(u, "root@example.com"))
	r = r.WithContext(auth.WithClaims(r.Context(), claims))
	rec, env := serve(t, h.Logout, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "User logged out successfully", env.Message)

	require.Contains(t, revoker.ids, claims.ID)
	ttl := revoker.ids[claims.ID]
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestLogout_Failures(t *testing.T) {
	s := newMockAccounts()
	h, tokens := newAuthHandler(s)
	_, _ = serve(t, h.Register, newRequest(t, http.MethodPost, "/register", registerBody(), nil))
	u := s.users["ada@example.com"]
	p := auth.Principal(u, "root@example.com")

	rec, _ := serve(t, h.Logout, newRequest(t, http.MethodPost, "/logout", nil, p))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	raw, _, err := tokens.Issue(u)
	require.NoError(t, err)
	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	h.revoker = &mockRevoker{err: errors.New("redis down")}
	r := newRequest(t, http.MethodPost, "/logout", nil, p)
	rec, env := serve(t, h.Logout, r.WithContext(auth.WithClaims(r.Context(), claims)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", env.Error.Code)
}

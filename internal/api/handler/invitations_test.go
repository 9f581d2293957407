package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
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

type mockInvitations struct {
	users       map[string]*models.User
	orgs        map[uuid.UUID]*models.Organization
	invitations map[string]*models.Invitation
}

func newMockInvitations() *mockInvitations {
	return &mockInvitations{
		users: map[string]*models.User{},
		orgs: map[uuid.UUID]*models.Organization{
			orgA: {ID: orgA, Name: "Acme Realty", SubscriptionStatus: models.SubscriptionActive},
			orgB: {ID: orgB, Name: "Beta Homes", SubscriptionStatus: models.SubscriptionPastDue},
		},
		invitations: map[string]*models.Invitation{},
	}
}

func (m *mockInvitations) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.users[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockInvitations) GetOrganization(_ context.Context, p *tenant.Principal, id uuid.UUID) (*models.Organization, error) {
	if org, ok := m.orgs[id]; ok && p.CanSee(id) {
		return org, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockInvitations) CreateInvitation(_ context.Context, inv *models.Invitation) error {
	inv.ID = uuid.New()
	inv.Email = strings.ToLower(inv.Email)
	inv.CreatedAt = time.Now()
	m.invitations[inv.Email] = inv
	return nil
}

func (m *mockInvitations) GetInvitationByEmail(_ context.Context, email string) (*models.Invitation, error) {
	if inv, ok := m.invitations[strings.ToLower(email)]; ok {
		return inv, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockInvitations) GetInvitationByToken(_ context.Context, hash string) (*models.Invitation, error) {
	for _, inv := range m.invitations {
		if inv.TokenHash == hash {
			return inv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockInvitations) AcceptInvitation(_ context.Context, inv *models.Invitation, u *models.User) error {
	if _, ok := m.invitations[inv.Email]; !ok {
		return store.ErrNotFound
	}
	delete(m.invitations, inv.Email)
	u.ID = uuid.New()
	u.Email = inv.Email
	u.OrganizationID = &inv.OrganizationID
	u.Roles = []string{inv.Role}
	u.Status = models.UserStatusActive
	m.users[u.Email] = u
	return nil
}

func newInvitationsHandler(s *mockInvitations) *Invitations {
	tokens := auth.NewTokens("0123456789abcdef0123456789abcdef", "dealflow-test", time.Hour)
	return NewInvitations(s, tokens, 48*time.Hour, "root@example.com", false)
}

func adminPrincipal(org uuid.UUID) *tenant.Principal {
	return &tenant.Principal{UserID: uuid.New(), OrganizationID: org, Roles: []string{"admin"}}
}

// invite creates an invitation and returns the raw token.
func invite(t *testing.T, h *Invitations, p *tenant.Principal, body map[string]any) string {
	t.Helper()
	rec, env := serve(t, h.Create, newRequest(t, http.MethodPost, "/invitations", body, p))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got invitationResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	return got.Token
}

func TestInvitationsCreate(t *testing.T) {
	s := newMockInvitations()
	h := newInvitationsHandler(s)
	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }
	p := adminPrincipal(orgA)

	body := map[string]any{"email": "New.Agent@example.com", "role": "staff", "organization_id": orgB}
	rec, env := serve(t, h.Create, newRequest(t, http.MethodPost, "/invitations", body, p))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Invitation created successfully", env.Message)

	var got invitationResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, orgA, got.OrganizationID)
	assert.Equal(t, "new.agent@example.com", got.Email)
	assert.Equal(t, "staff", got.Role)
	assert.True(t, fixed.Add(48*time.Hour).Equal(got.ExpiresAt))
	require.NotEmpty(t, got.Token)

	stored := s.invitations["new.agent@example.com"]
	require.NotNil(t, stored)
	assert.Equal(t, auth.HashInvitationToken(got.Token), stored.TokenHash)
	assert.NotEqual(t, got.Token, stored.TokenHash)
	require.NotNil(t, stored.InvitedBy)
	assert.Equal(t, p.UserID, *stored.InvitedBy)
}

func TestInvitationsCreate_Rejections(t *testing.T) {
	s := newMockInvitations()
	h := newInvitationsHandler(s)
	p := adminPrincipal(orgA)
	s.users["taken@example.com"] = &models.User{ID: uuid.New(), Email: "taken@example.com"}
	invite(t, h, p, map[string]any{"email": "pending@example.com", "role": "staff"})

	tests := []struct {
		name   string
		p      *tenant.Principal
		body   map[string]any
		status int
		code   string
	}{
		{"bad role", p, map[string]any{"email": "x@example.com", "role": "super_admin"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"bad email", p, map[string]any{"email": "nope", "role": "staff"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"existing user", p, map[string]any{"email": "Taken@example.com", "role": "staff"}, http.StatusBadRequest, "USER_ALREADY_EXISTS"},
		{"open invitation", p, map[string]any{"email": "pending@example.com", "role": "admin"}, http.StatusBadRequest, "INVITATION_ALREADY_EXISTS"},
		{"super admin without organization", superAdmin(), map[string]any{"email": "y@example.com", "role": "staff"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"super admin unknown organization", superAdmin(), map[string]any{"email": "y@example.com", "role": "staff", "organization_id": uuid.New()}, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := serve(t, h.Create, newRequest(t, http.MethodPost, "/invitations", tt.body, tt.p))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
	assert.Len(t, s.invitations, 1)
}

func TestInvitationsCreate_SuperAdminNamesOrganization(t *testing.T) {
	s := newMockInvitations()
	h := newInvitationsHandler(s)

	invite(t, h, superAdmin(), map[string]any{"email": "b@example.com", "role": "admin", "organization_id": orgB})
	assert.Equal(t, orgB, s.invitations["b@example.com"].OrganizationID)
}

func TestInvitationsCreate_ReplacesExpired(t *testing.T) {
	s := newMockInvitations()
	h := newInvitationsHandler(s)
	p := adminPrincipal(orgA)
	old := invite(t, h, p, map[string]any{"email": "late@example.com", "role": "staff"})

	h.now = func() time.Time { return time.Now().Add(72 * time.Hour) }
	fresh := invite(t, h, p, map[string]any{"email": "late@example.com", "role": "staff"})
	assert.NotEqual(t, old, fresh)
}

func TestInvitationsValidate(t *testing.T) {
	s := newMockInvitations()
	h := newInvitationsHandler(s)
	token := invite(t, h, adminPrincipal(orgA), map[string]any{"email": "v@example.com", "role": "admin"})

	rec, env := serve(t, h.Validate, newRequest(t, http.MethodGet, "/validate-invitation?token="+token, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Invitation validated successfully", env.Message)
	var got struct {
		Email        string `json:"email"`
		Role         string `json:"role"`
		Organization struct {
			ID   uuid.UUID `json:"id"`
			Name string    `json:"name"`
		} `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "v@example.com", got.Email)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, orgA, got.Organization.ID)
	assert.Equal(t, "Acme Realty", got.Organization.Name)
	assert.Contains(t, s.invitations, "v@example.com")

	rec, env = serve(t, h.Validate, newRequest(t, http.MethodGet, "/validate-invitation", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_TOKEN", env.Error.Code)

	rec, env = serve(t, h.Validate, newRequest(t, http.MethodGet, "/validate-invitation?token=forged", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INVITATION_TOKEN", env.Error.Code)

	h.now = func() time.Time { return time.Now().Add(49 * time.Hour) }
	rec, env = serve(t, h.Validate, newRequest(t, http.MethodGet, "/validate-invitation?token="+token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INVITATION_TOKEN", env.Error.Code)
}

func registerInviteeBody(token string) map[string]any {
	return map[string]any{
		"invitation_token":      token,
		"first_name":            "Ivy",
		"last_name":             "Invitee",
		"password":              "s3cretpass",
		"password_confirmation": "s3cretpass",
	}
}

func TestInvitationsRegister(t *testing.T) {
	s := newMockInvitations()
	h := newInvitationsHandler(s)
	token := invite(t, h, adminPrincipal(orgA), map[string]any{"email": "ivy@example.com", "role": "staff"})

	rec, env := serve(t, h.Register, newRequest(t, http.MethodPost, "/invitee-register", registerInviteeBody(token), nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "User registered successfully", env.Message)

	var got tokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.NotEmpty(t, got.Token)
	require.NotNil(t, got.User)
	assert.Equal(t, "ivy@example.com", got.User.Email)
	assert.Equal(t, []string{"staff"}, got.User.Roles)
	require.NotNil(t, got.User.OrganizationID)
	assert.Equal(t, orgA, *got.User.OrganizationID)

	u := s.users["ivy@example.com"]
	require.NotNil(t, u)
	assert.NoError(t, auth.CheckPassword(u.PasswordHash, "s3cretpass"))
	assert.Empty(t, s.invitations)

	rec, env = serve(t, h.Register, newRequest(t, http.MethodPost, "/invitee-register", registerInviteeBody(token), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INVITATION_TOKEN", env.Error.Code)
}

func TestInvitationsRegister_LapsedSubscriptionGetsNoToken(t *testing.T) {
	s := newMockInvitations()
	h := newInvitationsHandler(s)
	token := invite(t, h, adminPrincipal(orgB), map[string]any{"email": "sam@example.com", "role": "staff"})

	rec, env := serve(t, h.Register, newRequest(t, http.MethodPost, "/invitee-register", registerInviteeBody(token), nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.NotContains(t, got, "token")
	assert.Contains(t, got, "user")
	assert.Contains(t, s.users, "sam@example.com")
}

func TestInvitationsRegister_Validation(t *testing.T) {
	s := newMockInvitations()
	h := newInvitationsHandler(s)

	body := registerInviteeBody("")
	body["password_confirmation"] = "different"
	rec, env := serve(t, h.Register, newRequest(t, http.MethodPost, "/invitee-register", body, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fe := fieldErrorsOf(env)
	assert.Contains(t, fe, "invitation_token")
	assert.Contains(t, fe, "password_confirmation")
	assert.Empty(t, s.users)
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/auth"
	"github.com/kiranshivaraju/dealflow/internal/rbac"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
	"github.com/rs/zerolog"
)

// AccountStore is the storage used by registration, login and the current
// user endpoint.
type AccountStore interface {
	RegisterOrganization(ctx context.Context, org *models.Organization, owner *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetOrganization(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.Organization, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// TokenRevoker blocks a token id until the token would have expired.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, id string, ttl time.Duration) error
}

// PermissionLister reports the permissions granted to a role.
type PermissionLister interface {
	Permissions(role string) []string
}

// Auth serves registration, login, logout and the current user.
type Auth struct {
	store           AccountStore
	tokens          *auth.Tokens
	perms           PermissionLister
	revoker         TokenRevoker
	superAdminEmail string
	debug           bool
}

func NewAuth(s AccountStore, tokens *auth.Tokens, perms PermissionLister, revoker TokenRevoker, superAdminEmail string, debug bool) *Auth {
	return &Auth{store: s, tokens: tokens, perms: perms, revoker: revoker, superAdminEmail: superAdminEmail, debug: debug}
}

type registerRequest struct {
	OrganizationName     string  `json:"organization_name"     validate:"required,max=255"`
	FirstName            string  `json:"first_name"            validate:"required,max=100"`
	LastName             string  `json:"last_name"             validate:"required,max=100"`
	Email                string  `json:"email"                 validate:"required,email,max=255"`
	Phone                *string `json:"phone"                 validate:"omitempty,max=20"`
	Password             string  `json:"password"              validate:"required,min=8,max=72"`
	PasswordConfirmation string  `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	User         *models.User         `json:"user"`
	Organization *models.Organization `json:"organization,omitempty"`
	Token        string               `json:"token"`
	TokenType    string               `json:"token_type"`
	ExpiresAt    time.Time            `json:"expires_at"`
}

type currentUserResponse struct {
	User         *models.User         `json:"user"`
	Organization *models.Organization `json:"organization"`
	SuperAdmin   bool                 `json:"is_super_admin"`
	Permissions  []string             `json:"permissions"`
}

// Register creates an organization and its first admin user.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if problem := decode(r, &req, "registration"); problem != nil {
		problem.Write(w)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		response.ServerError("registration", err, h.debug, nil).Write(w)
		return
	}
	org := &models.Organization{
		Name: strings.TrimSpace(req.OrganizationName),
		Slug: models.Slugify(req.OrganizationName),
	}
	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Roles:        []string{rbac.RoleAdmin},
	}
	if err := h.store.RegisterOrganization(r.Context(), org, user); err != nil {
		storeError(w, r, err, "registration", "user", "", h.debug)
		return
	}

	writeToken(w, h.tokens, user, org, http.StatusCreated, "Registration successful", h.debug)
}

// Login exchanges credentials for a token.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if problem := decode(r, &req, "login"); problem != nil {
		problem.Write(w)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		storeError(w, r, err, "login", "user", "", h.debug)
		return
	}
	if user == nil {
		_ = auth.RejectUnknownUser(req.Password)
		response.UnauthorizedError("log in", map[string]any{"reason": "invalid_credentials"}).Write(w)
		return
	}
	if auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		response.UnauthorizedError("log in", map[string]any{"reason": "invalid_credentials"}).Write(w)
		return
	}
	if !user.Active() {
		response.ForbiddenError("log in", "", map[string]any{"reason": "account_inactive"}).Write(w)
		return
	}

	var org *models.Organization
	if user.OrganizationID != nil {
		org, err = h.store.GetOrganization(r.Context(), nil, *user.OrganizationID)
		if err != nil {
			storeError(w, r, err, "login", "organization", user.OrganizationID.String(), h.debug)
			return
		}
	}
	if subscriptionLapsed(user, org, h.superAdminEmail) {
		subscriptionInactive(user).Write(w)
		return
	}

	if err := h.store.TouchLastLogin(r.Context(), user.ID); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record login")
	}
	writeToken(w, h.tokens, user, org, http.StatusOK, "Login successful", h.debug)
}

// Logout revokes the token the request was made with for the rest of its
// lifetime.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.ID == "" {
		response.UnauthorizedError("log out", map[string]any{"reason": "invalid_token"}).Write(w)
		return
	}

	if claims.ExpiresAt != nil {
		if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
			if err := h.revoker.RevokeToken(r.Context(), claims.ID, ttl); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to revoke token")
				response.ServerError("logout", err, h.debug, nil).Write(w)
				return
			}
		}
	}
	zerolog.Ctx(r.Context()).Info().Str("user_id", p.UserID.String()).Msg("user logged out")
	response.Success(w, nil, "User logged out successfully")
}

// subscriptionLapsed reports whether a member must be kept out because its
// organization is not on an active subscription. Admins can still sign in to
// settle billing.
func subscriptionLapsed(u *models.User, org *models.Organization, superAdminEmail string) bool {
	if org == nil || org.SubscriptionStatus == models.SubscriptionActive {
		return false
	}
	if auth.IsSuperAdmin(u, superAdminEmail) || slices.Contains(u.Roles, rbac.RoleAdmin) {
		return false
	}
	return true
}

func subscriptionInactive(u *models.User) *response.Problem {
	return response.ForbiddenError("access your account", "", map[string]any{
		"account_status":      "inactive",
		"user_id":             u.ID,
		"deactivation_reason": "Organization subscription is not active",
	})
}

func writeToken(w http.ResponseWriter, tokens *auth.Tokens, u *models.User, org *models.Organization, status int, message string, debug bool) {
	token, exp, err := tokens.Issue(u)
	if err != nil {
		response.ServerError("token issuance", err, debug, nil).Write(w)
		return
	}
	body := tokenResponse{User: u, Organization: org, Token: token, TokenType: "Bearer", ExpiresAt: exp}
	if status == http.StatusCreated {
		response.Created(w, body, message)
		return
	}
	response.Success(w, body, message)
}

// CurrentUser returns the authenticated user, its organization and the
// permissions it holds.
func (h *Auth) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	user, err := h.store.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		storeError(w, r, err, "user retrieval", "user", p.UserID.String(), h.debug)
		return
	}

	var org *models.Organization
	if user.OrganizationID != nil {
		org, err = h.store.GetOrganization(r.Context(), p, *user.OrganizationID)
		if err != nil {
			storeError(w, r, err, "user retrieval", "organization", user.OrganizationID.String(), h.debug)
			return
		}
	}

	response.Success(w, currentUserResponse{
		User:         user,
		Organization: org,
		SuperAdmin:   p.SuperAdmin,
		Permissions:  h.permissionsOf(p),
	}, "")
}

func (h *Auth) permissionsOf(p *tenant.Principal) []string {
	if p.SuperAdmin {
		return rbac.AllPermissions()
	}
	var out []string
	for _, role := range p.Roles {
		for _, perm := range h.perms.Permissions(role) {
			if !slices.Contains(out, perm) {
				out = append(out, perm)
			}
		}
	}
	slices.Sort(out)
	if out == nil {
		out = []string{}
	}
	return out
}

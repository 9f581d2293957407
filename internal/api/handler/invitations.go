package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/auth"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
	"github.com/rs/zerolog"
)

// InvitationStore is the storage behind organization invitations.
type InvitationStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetOrganization(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.Organization, error)
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByEmail(ctx context.Context, email string) (*models.Invitation, error)
	GetInvitationByToken(ctx context.Context, tokenHash string) (*models.Invitation, error)
	AcceptInvitation(ctx context.Context, inv *models.Invitation, u *models.User) error
}

// Invitations lets organization admins invite members, and invitees join.
// Delivering the token to the invitee is left to the inviter.
type Invitations struct {
	store           InvitationStore
	tokens          *auth.Tokens
	ttl             time.Duration
	superAdminEmail string
	debug           bool
	now             func() time.Time
}

func NewInvitations(s InvitationStore, tokens *auth.Tokens, ttl time.Duration, superAdminEmail string, debug bool) *Invitations {
	return &Invitations{store: s, tokens: tokens, ttl: ttl, superAdminEmail: superAdminEmail, debug: debug, now: time.Now}
}

type invitationRequest struct {
	Email          string     `json:"email"           validate:"required,email,max=255"`
	Role           string     `json:"role"            validate:"required,oneof=admin staff"`
	OrganizationID *uuid.UUID `json:"organization_id"`
}

type invitationResponse struct {
	InvitationID   uuid.UUID `json:"invitation_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

type invitationSummary struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	Organization map[string]any `json:"organization"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

type inviteeRegisterRequest struct {
	InvitationToken      string  `json:"invitation_token"      validate:"required"`
	FirstName            string  `json:"first_name"            validate:"required,max=100"`
	LastName             string  `json:"last_name"             validate:"required,max=100"`
	Phone                *string `json:"phone"                 validate:"omitempty,max=20"`
	Password             string  `json:"password"              validate:"required,min=8,max=72"`
	PasswordConfirmation string  `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// Create invites an email address into the caller's organization. Super
// admins name the organization in the payload.
func (h *Invitations) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	const operation = "invitation creation"

	var req invitationRequest
	if problem := decode(r, &req, operation); problem != nil {
		problem.Write(w)
		return
	}

	orgID := p.OrganizationID
	if !p.Scoped() {
		if req.OrganizationID == nil || *req.OrganizationID == uuid.Nil {
			response.ValidationError(map[string][]string{
				tenant.Column: {requiredMessage(tenant.Column)},
			}, operation).Write(w)
			return
		}
		orgID = *req.OrganizationID
		if _, err := h.store.GetOrganization(r.Context(), p, orgID); err != nil {
			storeError(w, r, err, operation, "organization", orgID.String(), h.debug)
			return
		}
	}

	if _, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		response.BusinessLogicError("A user with this email address already exists.", "USER_ALREADY_EXISTS",
			map[string]any{"email": req.Email},
			[]string{"Ask the user to log in instead", "Use a different email address if this is a different user"}).Write(w)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		storeError(w, r, err, operation, "user", "", h.debug)
		return
	}

	existing, err := h.store.GetInvitationByEmail(r.Context(), req.Email)
	switch {
	case err == nil && !existing.Expired(h.now()):
		response.BusinessLogicError("An invitation has already been sent to this email address.", "INVITATION_ALREADY_EXISTS",
			map[string]any{
				"email":                       req.Email,
				"existing_invitation_id":      existing.ID,
				"existing_invitation_created": existing.CreatedAt,
			},
			[]string{
				"Check if the user has already received an invitation",
				"Use a different email address if this is a different user",
			}).Write(w)
		return
	case err != nil && !errors.Is(err, store.ErrNotFound):
		storeError(w, r, err, operation, "invitation", "", h.debug)
		return
	}

	token, hash, err := auth.NewInvitationToken()
	if err != nil {
		response.ServerError(operation, err, h.debug, nil).Write(w)
		return
	}
	inviter := p.UserID
	inv := &models.Invitation{
		OrganizationID: orgID,
		Email:          req.Email,
		Role:           req.Role,
		TokenHash:      hash,
		InvitedBy:      &inviter,
		ExpiresAt:      h.now().Add(h.ttl).UTC(),
	}
	if err := h.store.CreateInvitation(r.Context(), inv); err != nil {
		storeError(w, r, err, operation, "invitation", "", h.debug)
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Str("invitation_id", inv.ID.String()).
		Str("organization_id", inv.OrganizationID.String()).
		Str("role", inv.Role).
		Msg("invitation created")
	response.Created(w, invitationResponse{
		InvitationID:   inv.ID,
		Email:          inv.Email,
		Role:           inv.Role,
		OrganizationID: inv.OrganizationID,
		Token:          token,
		ExpiresAt:      inv.ExpiresAt,
		CreatedAt:      inv.CreatedAt,
	}, "Invitation created successfully")
}

// Validate describes the invitation behind ?token= without consuming it.
func (h *Invitations) Validate(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.lookup(w, r, r.URL.Query().Get("token"), "invitation validation")
	if !ok {
		return
	}
	org, err := h.store.GetOrganization(r.Context(), nil, inv.OrganizationID)
	if err != nil {
		storeError(w, r, err, "invitation validation", "organization", inv.OrganizationID.String(), h.debug)
		return
	}
	response.Success(w, invitationSummary{
		Email:        inv.Email,
		Role:         inv.Role,
		Organization: map[string]any{"id": org.ID, "name": org.Name},
		ExpiresAt:    inv.ExpiresAt,
	}, "Invitation validated successfully")
}

// Register creates the invited user and consumes the invitation. The new
// user gets a token unless its organization's subscription keeps it out.
func (h *Invitations) Register(w http.ResponseWriter, r *http.Request) {
	const operation = "user registration"

	var req inviteeRegisterRequest
	if problem := decode(r, &req, operation); problem != nil {
		problem.Write(w)
		return
	}
	inv, ok := h.lookup(w, r, req.InvitationToken, operation)
	if !ok {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		response.ServerError(operation, err, h.debug, nil).Write(w)
		return
	}
	user := &models.User{
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	}
	if err := h.store.AcceptInvitation(r.Context(), inv, user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			invalidInvitation().Write(w)
			return
		}
		storeError(w, r, err, operation, "user", "", h.debug)
		return
	}

	org, err := h.store.GetOrganization(r.Context(), nil, inv.OrganizationID)
	if err != nil {
		storeError(w, r, err, operation, "organization", inv.OrganizationID.String(), h.debug)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("user_id", user.ID.String()).
		Str("organization_id", org.ID.String()).
		Msg("invitation accepted")

	if subscriptionLapsed(user, org, h.superAdminEmail) {
		response.Created(w, struct {
			User         *models.User         `json:"user"`
			Organization *models.Organization `json:"organization"`
		}{user, org}, "User registered successfully")
		return
	}
	writeToken(w, h.tokens, user, org, http.StatusCreated, "User registered successfully", h.debug)
}

// lookup resolves a raw token to an open invitation, writing the reply when
// there is none.
func (h *Invitations) lookup(w http.ResponseWriter, r *http.Request, token, operation string) (*models.Invitation, bool) {
	if token == "" {
		response.BusinessLogicError("Invitation token is required.", "MISSING_TOKEN", nil,
			[]string{"Ensure the invitation link includes a valid token parameter"}).Write(w)
		return nil, false
	}
	inv, err := h.store.GetInvitationByToken(r.Context(), auth.HashInvitationToken(token))
	if errors.Is(err, store.ErrNotFound) || (err == nil && inv.Expired(h.now())) {
		invalidInvitation().Write(w)
		return nil, false
	}
	if err != nil {
		storeError(w, r, err, operation, "invitation", "", h.debug)
		return nil, false
	}
	return inv, true
}

func invalidInvitation() *response.Problem {
	return response.BusinessLogicError("Invalid or expired invitation token.", "INVALID_INVITATION_TOKEN", nil,
		[]string{
			"Request a new invitation from your organization administrator",
			"Ensure you are using the most recent invitation link",
		})
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/store"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

// OrganizationStore is the storage used by the organization endpoints.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.Organization, error)
	ListOrganizations(ctx context.Context, p *tenant.Principal, q store.ListQuery) ([]*models.Organization, int, error)
	UpdateOrganization(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*models.Organization, error)
	DetachUser(ctx context.Context, p *tenant.Principal, orgID, userID uuid.UUID) error
	GetUser(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.User, error)
}

// Forgetter drops cached state for a user whose account changed.
type Forgetter interface {
	Forget(id uuid.UUID)
}

type Organizations struct {
	store           OrganizationStore
	forget          Forgetter
	pager           Pager
	superAdminEmail string
	debug           bool
}

func NewOrganizations(s OrganizationStore, forget Forgetter, pager Pager, superAdminEmail string, debug bool) *Organizations {
	return &Organizations{store: s, forget: forget, pager: pager, superAdminEmail: superAdminEmail, debug: debug}
}

type organizationRequest struct {
	Name             *string `json:"name"              db:"name"              validate:"omitempty,min=1,max=255"`
	Industry         *string `json:"industry"          db:"industry"          validate:"omitempty,max=100"`
	OrganizationSize *string `json:"organization_size" db:"organization_size" validate:"omitempty,max=50"`
	BusinessEmail    *string `json:"business_email"    db:"business_email"    validate:"omitempty,email,max=255"`
	BusinessPhone    *string `json:"business_phone"    db:"business_phone"    validate:"omitempty,max=20"`
	Website          *string `json:"website"           db:"website"           validate:"omitempty,url,max=255"`
	Timezone         *string `json:"timezone"          db:"timezone"          validate:"omitempty,max=64"`
}

func (organizationRequest) Required() []string { return []string{"name"} }

type subscriptionStatusRequest struct {
	SubscriptionStatus string `json:"subscription_status" validate:"required,oneof=new active trialing past_due canceled unpaid incomplete"`
}

// statusSuperAdmin is reported instead of a subscription status for
// platform super-admins, who belong to no organization.
const statusSuperAdmin = "super_admin"

type organizationStatus struct {
	Status             string     `json:"status"`
	OrganizationID     *uuid.UUID `json:"organization_id,omitempty"`
	OrganizationName   string     `json:"organization_name,omitempty"`
	SubscriptionStatus string     `json:"subscription_status,omitempty"`
}

// List returns every organization to super-admins and the caller's own
// organization to everyone else.
func (h *Organizations) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q, problem := h.pager.listQuery(r, "subscription_status")
	if problem != nil {
		problem.Write(w)
		return
	}
	orgs, total, err := h.store.ListOrganizations(r.Context(), p, q)
	if err != nil {
		storeError(w, r, err, "listing organizations", "organization", "", h.debug)
		return
	}
	paginated(w, orgs, total, q, "")
}

func (h *Organizations) Create(w http.ResponseWriter, r *http.Request) {
	var in organizationRequest
	if problem := decode(r, &in, "organization creation"); problem != nil {
		problem.Write(w)
		return
	}
	values := valuesOf(&in)
	if missing := missingRequired(in, values); len(missing) > 0 {
		response.ValidationError(missing, "organization creation").Write(w)
		return
	}

	org := &models.Organization{
		Name:             strings.TrimSpace(*in.Name),
		Slug:             models.Slugify(*in.Name),
		Industry:         in.Industry,
		OrganizationSize: in.OrganizationSize,
		BusinessEmail:    in.BusinessEmail,
		BusinessPhone:    in.BusinessPhone,
		Website:          in.Website,
	}
	if in.Timezone != nil {
		org.Timezone = *in.Timezone
	}
	if err := h.store.CreateOrganization(r.Context(), org); err != nil {
		storeError(w, r, err, "organization creation", "organization", "", h.debug)
		return
	}
	response.Created(w, org, "Organization created successfully")
}

func (h *Organizations) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "organization")
	if !ok {
		return
	}
	org, err := h.store.GetOrganization(r.Context(), p, id)
	if err != nil {
		storeError(w, r, err, "organization retrieval", "organization", id.String(), h.debug)
		return
	}
	response.Success(w, org, "")
}

func (h *Organizations) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "organization")
	if !ok {
		return
	}
	var in organizationRequest
	if problem := decode(r, &in, "organization update"); problem != nil {
		problem.Write(w)
		return
	}
	org, err := h.store.UpdateOrganization(r.Context(), p, id, valuesOf(&in))
	if err != nil {
		storeError(w, r, err, "organization update", "organization", id.String(), h.debug)
		return
	}
	response.Success(w, org, "Organization updated successfully")
}

func (h *Organizations) UpdateSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "organization")
	if !ok {
		return
	}
	var in subscriptionStatusRequest
	if problem := decode(r, &in, "subscription status update"); problem != nil {
		problem.Write(w)
		return
	}
	org, err := h.store.UpdateOrganization(r.Context(), p, id, map[string]any{
		"subscription_status": in.SubscriptionStatus,
	})
	if err != nil {
		storeError(w, r, err, "subscription status update", "organization", id.String(), h.debug)
		return
	}
	response.Success(w, org, "Subscription status updated successfully")
}

// Status reports the subscription status of the caller's organization.
// Super-admins get the status "super_admin".
func (h *Organizations) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if p.SuperAdmin {
		response.Success(w, organizationStatus{Status: statusSuperAdmin}, "Status retrieved successfully")
		return
	}
	org, err := h.store.GetOrganization(r.Context(), p, p.OrganizationID)
	if err != nil {
		storeError(w, r, err, "subscription status retrieval", "organization", p.OrganizationID.String(), h.debug)
		return
	}
	response.Success(w, organizationStatus{
		Status:             org.SubscriptionStatus,
		OrganizationID:     &org.ID,
		OrganizationName:   org.Name,
		SubscriptionStatus: org.SubscriptionStatus,
	}, "Organization status retrieved successfully")
}

// DetachUser removes a user from an organization. The user is deactivated
// and its cached identity dropped.
func (h *Organizations) DetachUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r, "id", "organization")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}
	if userID == p.UserID {
		response.BusinessLogicError("You cannot remove yourself from an organization.", "CANNOT_REMOVE_SELF", nil,
			[]string{"Ask another administrator to remove your account"}).Write(w)
		return
	}
	target, err := h.store.GetUser(r.Context(), p, userID)
	if err != nil {
		storeError(w, r, err, "user removal", "user", userID.String(), h.debug)
		return
	}
	if !protectSuperAdmin(w, p, target, h.superAdminEmail, "remove a super-admin from an organization") {
		return
	}
	if err := h.store.DetachUser(r.Context(), p, orgID, userID); err != nil {
		storeError(w, r, err, "user removal", "user", userID.String(), h.debug)
		return
	}
	h.forget.Forget(userID)
	response.Success(w, nil, "User removed from organization successfully")
}

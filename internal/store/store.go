package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/kiranshivaraju/dealflow/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface for accounts, organizations and role
// grants. Tenant-owned CRM records go through TenantTable.
//
// Methods taking a *tenant.Principal only see rows the principal may see;
// rows outside its organization are reported as ErrNotFound.
type Store interface {
	Ping(ctx context.Context) error

	RegisterOrganization(ctx context.Context, org *models.Organization, owner *models.User) error
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganization(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.Organization, error)
	ListOrganizations(ctx context.Context, p *tenant.Principal, q ListQuery) ([]*models.Organization, int, error)
	UpdateOrganization(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*models.Organization, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, p *tenant.Principal, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, p *tenant.Principal, q ListQuery) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, p *tenant.Principal, id uuid.UUID, values map[string]any) (*models.User, error)
	DetachUser(ctx context.Context, p *tenant.Principal, orgID, userID uuid.UUID) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error

	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByEmail(ctx context.Context, email string) (*models.Invitation, error)
	GetInvitationByToken(ctx context.Context, tokenHash string) (*models.Invitation, error)
	AcceptInvitation(ctx context.Context, inv *models.Invitation, u *models.User) error

	ListRolePermissions(ctx context.Context) (map[string][]string, error)
	ReplaceRolePermissions(ctx context.Context, role string, permissions []string) error
}

// ListQuery describes one page of a filtered listing.
type ListQuery struct {
	Page    int
	PerPage int
	// Filters are equality predicates keyed by column.
	Filters map[string]any
	// Search is matched case-insensitively against the searchable columns.
	Search string
}

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

func (q ListQuery) limit() uint64 {
	switch {
	case q.PerPage < 1:
		return defaultPerPage
	case q.PerPage > maxPerPage:
		return maxPerPage
	}
	return uint64(q.PerPage)
}

func (q ListQuery) offset() uint64 {
	if q.Page < 1 {
		return 0
	}
	return uint64(q.Page-1) * q.limit()
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation lets someone join an organization with a preset role. Only a
// hash of the token is stored.
type Invitation struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Email          string     `db:"email"           json:"email"`
	Role           string     `db:"role"            json:"role"`
	TokenHash      string     `db:"token_hash"      json:"-"`
	InvitedBy      *uuid.UUID `db:"invited_by"      json:"invited_by"`
	ExpiresAt      time.Time  `db:"expires_at"      json:"expires_at"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
}

func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

// User is an account. OrganizationID is nil for platform super-admins.
// Only the bcrypt hash of the password is stored.
type User struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganizationID *uuid.UUID `db:"organization_id" json:"organization_id"`
	Email          string     `db:"email"           json:"email"`
	PasswordHash   string     `db:"password_hash"   json:"-"`
	FirstName      string     `db:"first_name"      json:"first_name"`
	LastName       string     `db:"last_name"       json:"last_name"`
	Phone          *string    `db:"phone"           json:"phone"`
	Roles          []string   `db:"roles"           json:"roles"`
	Status         string     `db:"status"          json:"status"`
	LastLoginAt    *time.Time `db:"last_login_at"   json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

// Active reports whether the user may sign in.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}

// OrgID returns the owning organization or uuid.Nil.
func (u *User) OrgID() uuid.UUID {
	if u.OrganizationID == nil {
		return uuid.Nil
	}
	return *u.OrganizationID
}

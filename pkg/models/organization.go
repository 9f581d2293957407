// Package models contains the entities shared across the dealflow codebase.
package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Subscription states an organization moves through.
const (
	SubscriptionNew        = "new"
	SubscriptionActive     = "active"
	SubscriptionTrialing   = "trialing"
	SubscriptionPastDue    = "past_due"
	SubscriptionCanceled   = "canceled"
	SubscriptionUnpaid     = "unpaid"
	SubscriptionIncomplete = "incomplete"
)

var SubscriptionStatuses = []string{
	SubscriptionNew, SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue,
	SubscriptionCanceled, SubscriptionUnpaid, SubscriptionIncomplete,
}

// Organization is a tenant. Every CRM record belongs to exactly one.
type Organization struct {
	ID                 uuid.UUID `db:"id"                  json:"id"`
	Name               string    `db:"name"                json:"name"`
	Slug               string    `db:"slug"                json:"slug"`
	SubscriptionStatus string    `db:"subscription_status" json:"subscription_status"`
	Industry           *string   `db:"industry"            json:"industry"`
	OrganizationSize   *string   `db:"organization_size"   json:"organization_size"`
	BusinessEmail      *string   `db:"business_email"      json:"business_email"`
	BusinessPhone      *string   `db:"business_phone"      json:"business_phone"`
	Website            *string   `db:"website"             json:"website"`
	Timezone           string    `db:"timezone"            json:"timezone"`
	CreatedAt          time.Time `db:"created_at"          json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"          json:"updated_at"`
}

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

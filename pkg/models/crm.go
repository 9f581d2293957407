package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead is a prospective buyer or seller.
type Lead struct {
	ID                     uuid.UUID  `db:"id"                       json:"id"`
	OrganizationID         uuid.UUID  `db:"organization_id"          json:"organization_id"`
	UserID                 *uuid.UUID `db:"user_id"                  json:"user_id"`
	LeadType               string     `db:"lead_type"                json:"lead_type"`
	FirstName              string     `db:"first_name"               json:"first_name"`
	LastName               string     `db:"last_name"                json:"last_name"`
	Email                  *string    `db:"email"                    json:"email"`
	Phone                  *string    `db:"phone"                    json:"phone"`
	PropertyAddress        *string    `db:"property_address"         json:"property_address"`
	PropertyCity           *string    `db:"property_city"            json:"property_city"`
	PropertyState          *string    `db:"property_state"           json:"property_state"`
	PropertyZip            *string    `db:"property_zip"             json:"property_zip"`
	Source                 *string    `db:"source"                   json:"source"`
	EstimatedValue         *float64   `db:"estimated_value"          json:"estimated_value"`
	AskingPrice            *float64   `db:"asking_price"             json:"asking_price"`
	Status                 string     `db:"status"                   json:"status"`
	PreferredContactMethod *string    `db:"preferred_contact_method" json:"preferred_contact_method"`
	NextActionDate         *time.Time `db:"next_action_date"         json:"next_action_date"`
	CreatedAt              time.Time  `db:"created_at"               json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"               json:"updated_at"`
}

type Property struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	OrganizationID  uuid.UUID  `db:"organization_id"  json:"organization_id"`
	UserID          *uuid.UUID `db:"user_id"          json:"user_id"`
	Address         string     `db:"address"          json:"address"`
	City            string     `db:"city"             json:"city"`
	State           string     `db:"state"            json:"state"`
	Zip             string     `db:"zip"              json:"zip"`
	PropertyType    string     `db:"property_type"    json:"property_type"`
	Bedrooms        *int32     `db:"bedrooms"         json:"bedrooms"`
	Bathrooms       *float64   `db:"bathrooms"        json:"bathrooms"`
	SquareFeet      *int32     `db:"square_feet"      json:"square_feet"`
	PurchasePrice   float64    `db:"purchase_price"   json:"purchase_price"`
	ARV             float64    `db:"arv"              json:"arv"`
	RepairEstimate  float64    `db:"repair_estimate"  json:"repair_estimate"`
	TransactionType string     `db:"transaction_type" json:"transaction_type"`
	Status          string     `db:"status"           json:"status"`
	Description     *string    `db:"description"      json:"description"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

type Deal struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	UserID         *uuid.UUID `db:"user_id"         json:"user_id"`
	PropertyID     *uuid.UUID `db:"property_id"     json:"property_id"`
	LeadID         *uuid.UUID `db:"lead_id"         json:"lead_id"`
	DealType       string     `db:"deal_type"       json:"deal_type"`
	PurchasePrice  float64    `db:"purchase_price"  json:"purchase_price"`
	SalePrice      *float64   `db:"sale_price"      json:"sale_price"`
	AssignmentFee  *float64   `db:"assignment_fee"  json:"assignment_fee"`
	ContractDate   *time.Time `db:"contract_date"   json:"contract_date"`
	ClosingDate    *time.Time `db:"closing_date"    json:"closing_date"`
	Status         string     `db:"status"          json:"status"`
	InternalNotes  *string    `db:"internal_notes"  json:"internal_notes"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

type Campaign struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	UserID         *uuid.UUID `db:"user_id"         json:"user_id"`
	Name           string     `db:"name"            json:"name"`
	CampaignType   string     `db:"campaign_type"   json:"campaign_type"`
	Channel        string     `db:"channel"         json:"channel"`
	Status         string     `db:"status"          json:"status"`
	ScheduledAt    *time.Time `db:"scheduled_at"    json:"scheduled_at"`
	Budget         *float64   `db:"budget"          json:"budget"`
	Description    *string    `db:"description"     json:"description"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

type Client struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	UserID         *uuid.UUID `db:"user_id"         json:"user_id"`
	FirstName      string     `db:"first_name"      json:"first_name"`
	LastName       string     `db:"last_name"       json:"last_name"`
	Email          *string    `db:"email"           json:"email"`
	Phone          *string    `db:"phone"           json:"phone"`
	Company        *string    `db:"company"         json:"company"`
	ClientType     string     `db:"client_type"     json:"client_type"`
	Status         string     `db:"status"          json:"status"`
	Notes          *string    `db:"notes"           json:"notes"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

// AIConversation records an automated exchange with a lead.
type AIConversation struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	UserID         *uuid.UUID `db:"user_id"         json:"user_id"`
	LeadID         *uuid.UUID `db:"lead_id"         json:"lead_id"`
	Channel        string     `db:"channel"         json:"channel"`
	Summary        *string    `db:"summary"         json:"summary"`
	Sentiment      *string    `db:"sentiment"       json:"sentiment"`
	Status         string     `db:"status"          json:"status"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

// Milestone types a deal can track.
var MilestoneTypes = []string{
	"inspection", "appraisal", "financing", "title", "closing",
	"contract_signed", "earnest_deposited", "custom",
}

// DealMilestone is a dated checkpoint on the way to closing a deal.
type DealMilestone struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	UserID         *uuid.UUID `db:"user_id"         json:"user_id"`
	DealID         uuid.UUID  `db:"deal_id"         json:"deal_id"`
	MilestoneType  string     `db:"milestone_type"  json:"milestone_type"`
	Title          string     `db:"title"           json:"title"`
	Description    *string    `db:"description"     json:"description"`
	DueDate        time.Time  `db:"due_date"        json:"due_date"`
	CompletedAt    *time.Time `db:"completed_at"    json:"completed_at"`
	CompletedBy    *uuid.UUID `db:"completed_by"    json:"completed_by"`
	IsCritical     bool       `db:"is_critical"     json:"is_critical"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

func (m *DealMilestone) Completed() bool {
	return m.CompletedAt != nil
}

// PropertySave is one user's bookmark of a property.
type PropertySave struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	UserID         uuid.UUID `db:"user_id"         json:"user_id"`
	PropertyID     uuid.UUID `db:"property_id"     json:"property_id"`
	Notes          *string   `db:"notes"           json:"notes"`
	CreatedAt      time.Time `db:"created_at"      json:"saved_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

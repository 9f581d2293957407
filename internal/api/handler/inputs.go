package handler

import (
	"time"

	"github.com/google/uuid"
)

// Payloads for tenant-owned resources. Every field is optional on update;
// Required lists what create needs. organization_id is only honored for
// principals without an organization of their own.

type LeadInput struct {
	OrganizationID         *uuid.UUID `json:"organization_id"          db:"organization_id"`
	LeadType               *string    `json:"lead_type"                db:"lead_type"                validate:"omitempty,oneof=buyer seller"`
	FirstName              *string    `json:"first_name"               db:"first_name"               validate:"omitempty,max=100"`
	LastName               *string    `json:"last_name"                db:"last_name"                validate:"omitempty,max=100"`
	Email                  *string    `json:"email"                    db:"email"                    validate:"omitempty,email,max=255"`
	Phone                  *string    `json:"phone"                    db:"phone"                    validate:"omitempty,max=20"`
	PropertyAddress        *string    `json:"property_address"         db:"property_address"         validate:"omitempty,max=500"`
	PropertyCity           *string    `json:"property_city"            db:"property_city"            validate:"omitempty,max=100"`
	PropertyState          *string    `json:"property_state"           db:"property_state"           validate:"omitempty,len=2"`
	PropertyZip            *string    `json:"property_zip"             db:"property_zip"             validate:"omitempty,max=10"`
	Source                 *string    `json:"source"                   db:"source"                   validate:"omitempty,max=100"`
	EstimatedValue         *float64   `json:"estimated_value"          db:"estimated_value"          validate:"omitempty,gte=0"`
	AskingPrice            *float64   `json:"asking_price"             db:"asking_price"             validate:"omitempty,gte=0"`
	Status                 *string    `json:"status"                   db:"status"                   validate:"omitempty,oneof=new contacted qualified negotiating contract closed dead"`
	PreferredContactMethod *string    `json:"preferred_contact_method" db:"preferred_contact_method" validate:"omitempty,oneof=phone email text"`
	NextActionDate         *string    `json:"next_action_date"         db:"next_action_date"         validate:"omitempty,datetime=2006-01-02"`
}

func (LeadInput) Required() []string {
	return []string{"lead_type", "first_name", "last_name"}
}

type PropertyInput struct {
	OrganizationID  *uuid.UUID `json:"organization_id"  db:"organization_id"`
	Address         *string    `json:"address"          db:"address"          validate:"omitempty,max=500"`
	City            *string    `json:"city"             db:"city"             validate:"omitempty,max=100"`
	State           *string    `json:"state"            db:"state"            validate:"omitempty,len=2"`
	Zip             *string    `json:"zip"              db:"zip"              validate:"omitempty,max=10"`
	PropertyType    *string    `json:"property_type"    db:"property_type"    validate:"omitempty,oneof=single_family townhouse condo duplex multi_family mobile_home"`
	Bedrooms        *int32     `json:"bedrooms"         db:"bedrooms"         validate:"omitempty,gte=0"`
	Bathrooms       *float64   `json:"bathrooms"        db:"bathrooms"        validate:"omitempty,gte=0"`
	SquareFeet      *int32     `json:"square_feet"      db:"square_feet"      validate:"omitempty,gte=0"`
	PurchasePrice   *float64   `json:"purchase_price"   db:"purchase_price"   validate:"omitempty,gte=0"`
	ARV             *float64   `json:"arv"              db:"arv"              validate:"omitempty,gte=0"`
	RepairEstimate  *float64   `json:"repair_estimate"  db:"repair_estimate"  validate:"omitempty,gte=0"`
	TransactionType *string    `json:"transaction_type" db:"transaction_type" validate:"omitempty,oneof=assignment double_close wholesale fix_and_flip buy_and_hold"`
	Status          *string    `json:"status"           db:"status"           validate:"omitempty,oneof=draft active pending sold"`
	Description     *string    `json:"description"      db:"description"`
}

func (PropertyInput) Required() []string {
	return []string{"address", "city", "state", "zip", "property_type", "purchase_price", "arv", "transaction_type"}
}

type DealInput struct {
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	PropertyID     *uuid.UUID `json:"property_id"     db:"property_id"`
	LeadID         *uuid.UUID `json:"lead_id"         db:"lead_id"`
	DealType       *string    `json:"deal_type"       db:"deal_type"       validate:"omitempty,oneof=assignment double_close wholesale fix_flip"`
	PurchasePrice  *float64   `json:"purchase_price"  db:"purchase_price"  validate:"omitempty,gte=0"`
	SalePrice      *float64   `json:"sale_price"      db:"sale_price"      validate:"omitempty,gte=0"`
	AssignmentFee  *float64   `json:"assignment_fee"  db:"assignment_fee"  validate:"omitempty,gte=0"`
	ContractDate   *string    `json:"contract_date"   db:"contract_date"   validate:"omitempty,datetime=2006-01-02"`
	ClosingDate    *string    `json:"closing_date"    db:"closing_date"    validate:"omitempty,datetime=2006-01-02"`
	Status         *string    `json:"status"          db:"status"          validate:"omitempty,oneof=active pending closed cancelled"`
	InternalNotes  *string    `json:"internal_notes"  db:"internal_notes"`
}

func (DealInput) Required() []string {
	return []string{"deal_type", "purchase_price"}
}

type CampaignInput struct {
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           *string    `json:"name"            db:"name"            validate:"omitempty,max=255"`
	CampaignType   *string    `json:"campaign_type"   db:"campaign_type"   validate:"omitempty,oneof=seller_finder buyer_finder"`
	Channel        *string    `json:"channel"         db:"channel"         validate:"omitempty,oneof=email sms voice direct_mail"`
	Status         *string    `json:"status"          db:"status"          validate:"omitempty,oneof=draft scheduled active paused completed cancelled"`
	ScheduledAt    *time.Time `json:"scheduled_at"    db:"scheduled_at"`
	Budget         *float64   `json:"budget"          db:"budget"          validate:"omitempty,gte=0"`
	Description    *string    `json:"description"     db:"description"`
}

func (CampaignInput) Required() []string {
	return []string{"name", "campaign_type", "channel"}
}

type ClientInput struct {
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	FirstName      *string    `json:"first_name"      db:"first_name"      validate:"omitempty,max=100"`
	LastName       *string    `json:"last_name"       db:"last_name"       validate:"omitempty,max=100"`
	Email          *string    `json:"email"           db:"email"           validate:"omitempty,email,max=255"`
	Phone          *string    `json:"phone"           db:"phone"           validate:"omitempty,max=20"`
	Company        *string    `json:"company"         db:"company"         validate:"omitempty,max=255"`
	ClientType     *string    `json:"client_type"     db:"client_type"     validate:"omitempty,oneof=seller buyer"`
	Status         *string    `json:"status"          db:"status"          validate:"omitempty,oneof=prospect active closed inactive"`
	Notes          *string    `json:"notes"           db:"notes"`
}

func (ClientInput) Required() []string {
	return []string{"first_name", "last_name", "client_type"}
}

type AIConversationInput struct {
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	LeadID         *uuid.UUID `json:"lead_id"         db:"lead_id"`
	Channel        *string    `json:"channel"         db:"channel"         validate:"omitempty,oneof=sms voice email chat whatsapp"`
	Summary        *string    `json:"summary"         db:"summary"`
	Sentiment      *string    `json:"sentiment"       db:"sentiment"       validate:"omitempty,max=50"`
	Status         *string    `json:"status"          db:"status"          validate:"omitempty,oneof=active completed transferred failed"`
}

func (AIConversationInput) Required() []string {
	return []string{"channel"}
}

// DealMilestoneInput leaves completion out; milestones are completed through
// their own endpoint so the completing user is recorded.
type DealMilestoneInput struct {
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	DealID         *uuid.UUID `json:"deal_id"         db:"deal_id"`
	MilestoneType  *string    `json:"milestone_type"  db:"milestone_type"  validate:"omitempty,oneof=inspection appraisal financing title closing contract_signed earnest_deposited custom"`
	Title          *string    `json:"title"           db:"title"           validate:"omitempty,max=255"`
	Description    *string    `json:"description"     db:"description"`
	DueDate        *string    `json:"due_date"        db:"due_date"        validate:"omitempty,datetime=2006-01-02"`
	IsCritical     *bool      `json:"is_critical"     db:"is_critical"`
}

func (DealMilestoneInput) Required() []string {
	return []string{"deal_id", "milestone_type", "title", "due_date"}
}

type PropertySaveInput struct {
	OrganizationID *uuid.UUID `json:"organization_id" db:"organization_id"`
	PropertyID     *uuid.UUID `json:"property_id"     db:"property_id"`
	Notes          *string    `json:"notes"           db:"notes"`
}

func (PropertySaveInput) Required() []string {
	return []string{"property_id"}
}

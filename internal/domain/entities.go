package domain

import "time"

// Contact is a single mailing recipient.
type Contact struct {
	BaseEntity
	FirstName    string `gorm:"size:100" json:"first_name" binding:"max=100"`
	LastName     string `gorm:"size:100" json:"last_name" binding:"max=100"`
	Email        string `gorm:"size:255;index;not null" json:"email" binding:"required,email,max=255"`
	From         string `gorm:"size:100" json:"from" binding:"max=100"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// ContactGroup is a named audience of contacts.
type ContactGroup struct {
	BaseEntity
	Name        string `gorm:"size:100;not null" json:"name" binding:"required,max=100"`
	Description string `gorm:"size:500" json:"description" binding:"max=500"`
}

// GroupMembership associates a contact with a contact group.
type GroupMembership struct {
	GroupID   string    `gorm:"primaryKey;size:36" json:"group_id"`
	ContactID string    `gorm:"primaryKey;size:36" json:"contact_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Campaign statuses.
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignSent      = "sent"
)

// Campaign is an email sent from a sender to a contact group.
type Campaign struct {
	BaseEntity
	Name        string     `gorm:"size:200;not null" json:"name" binding:"required,max=200"`
	Subject     string     `gorm:"size:300" json:"subject" binding:"max=300"`
	SenderID    string     `gorm:"size:36" json:"sender_id"`
	GroupID     string     `gorm:"size:36" json:"group_id"`
	Content     string     `gorm:"type:text" json:"content"`
	Status      string     `gorm:"size:20;default:draft" json:"status" binding:"omitempty,oneof=draft scheduled sent"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// Domain verification statuses.
const (
	DomainPending  = "pending"
	DomainVerified = "verified"
)

// Domain is a sending domain owned by the account.
type Domain struct {
	BaseEntity
	Name   string `gorm:"size:253;not null" json:"name" binding:"required,fqdn"`
	Status string `gorm:"size:20;default:pending" json:"status" binding:"omitempty,oneof=pending verified"`
}

// DNSRecord is one DNS entry the account must publish to verify a domain.
type DNSRecord struct {
	Type  string `json:"type"`
	Host  string `json:"host"`
	Value string `json:"value"`
}

// Sender is a from-address campaigns are sent with.
type Sender struct {
	BaseEntity
	Name     string `gorm:"size:100;not null" json:"name" binding:"required,max=100"`
	Email    string `gorm:"size:255;not null" json:"email" binding:"required,email"`
	DomainID string `gorm:"size:36" json:"domain_id"`
}

// Ticket priorities and statuses.
const (
	TicketLow    = "low"
	TicketNormal = "normal"
	TicketHigh   = "high"

	TicketOpen   = "open"
	TicketClosed = "closed"
)

// Ticket is a support request.
type Ticket struct {
	BaseEntity
	Subject  string `gorm:"size:300;not null" json:"subject" binding:"required,max=300"`
	Message  string `gorm:"type:text" json:"message"`
	Priority string `gorm:"size:10;default:normal" json:"priority" binding:"omitempty,oneof=low normal high"`
	Status   string `gorm:"size:10;default:open" json:"status" binding:"omitempty,oneof=open closed"`
}

// Plan is a subscription tier.
type Plan struct {
	BaseEntity
	Name          string `gorm:"size:100;not null" json:"name" binding:"required,max=100"`
	PriceCents    int64  `json:"price_cents" binding:"gte=0"`
	Currency      string `gorm:"size:3" json:"currency" binding:"omitempty,len=3"`
	ContactsLimit int    `json:"contacts_limit" binding:"gte=0"`
	EmailsLimit   int    `json:"emails_limit" binding:"gte=0"`
}

// Billing record statuses.
const (
	BillingPaid    = "paid"
	BillingPending = "pending"
	BillingFailed  = "failed"
)

// BillingRecord is one invoice line for a plan.
type BillingRecord struct {
	BaseEntity
	PlanID      string `gorm:"size:36" json:"plan_id"`
	AmountCents int64  `json:"amount_cents" binding:"gte=0"`
	Currency    string `gorm:"size:3" json:"currency" binding:"omitempty,len=3"`
	Status      string `gorm:"size:10;default:pending" json:"status" binding:"omitempty,oneof=paid pending failed"`
	Reference   string `gorm:"size:100" json:"reference" binding:"required,max=100"`
}

// Account is a user of the product. It signs in to obtain API tokens.
type Account struct {
	BaseEntity
	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
}

// AllModels lists every persisted model, in migration order.
func AllModels() []any {
	return []any{
		&Account{},
		&Contact{},
		&ContactGroup{},
		&GroupMembership{},
		&Campaign{},
		&Domain{},
		&Sender{},
		&Ticket{},
		&Plan{},
		&BillingRecord{},
	}
}

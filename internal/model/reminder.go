package model

import (
	"time"

	"github.com/google/uuid"
)

type ReminderEventStatus string

const (
	ReminderEventStatusScheduled ReminderEventStatus = "scheduled"
	ReminderEventStatusSent      ReminderEventStatus = "sent"
	ReminderEventStatusFailed    ReminderEventStatus = "failed"
)

// DefaultReminderOffsets are the days-before-expiration offsets used
// when a provider has no reminder rules of their own.
var DefaultReminderOffsets = []int{30, 7, 1}

// ReminderRule is a per-provider notification policy: fire a reminder
// this many days before a certification expires. At most one rule per
// (provider, days_before_expiration) pair.
type ReminderRule struct {
	Base
	ProviderID           uuid.UUID `db:"provider_id" json:"provider_id"`
	DaysBeforeExpiration int       `db:"days_before_expiration" json:"days_before_expiration"`
	Enabled              bool      `db:"enabled" json:"enabled"`
}

// ReminderEvent is one scheduled notification for a certification.
// Once SentAt is set the row is immutable; that is the anchor of the
// exactly-once guarantee.
type ReminderEvent struct {
	Base
	CertificationID uuid.UUID           `db:"certification_id" json:"certification_id"`
	ScheduledFor    time.Time           `db:"scheduled_for" json:"scheduled_for"`
	Status          ReminderEventStatus `db:"status" json:"status"`
	SentAt          *time.Time          `db:"sent_at" json:"sent_at,omitempty"`
	ErrorMessage    *string             `db:"error_message" json:"error_message,omitempty"`
}

// DueReminder is a reminder event joined to its certification and the
// owning provider's contact address, as selected by the dispatcher.
type DueReminder struct {
	EventID         uuid.UUID `db:"event_id"`
	CertificationID uuid.UUID `db:"certification_id"`
	ProviderID      uuid.UUID `db:"provider_id"`
	ProviderEmail   string    `db:"provider_email"`
	ProviderName    string    `db:"provider_name"`
	CertName        string    `db:"cert_name"`
	ExpirationAt    time.Time `db:"expiration_at"`
	ScheduledFor    time.Time `db:"scheduled_for"`
}

type UpdateReminderRuleRequest struct {
	DaysBeforeExpiration *int  `json:"days_before_expiration" binding:"omitempty,min=1,max=365"`
	Enabled              *bool `json:"enabled"`
}

type CreateReminderRuleRequest struct {
	DaysBeforeExpiration int  `json:"days_before_expiration" binding:"required,min=1,max=365"`
	Enabled              bool `json:"enabled"`
}

package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type CertificationStatus string

const (
	CertificationStatusActive       CertificationStatus = "active"
	CertificationStatusExpiringSoon CertificationStatus = "expiring_soon"
	CertificationStatusExpired      CertificationStatus = "expired"
	CertificationStatusMissing      CertificationStatus = "missing"
)

// ExpiringSoonWindowDays is the fixed window used to derive the
// expiring_soon status, independent of configured reminder offsets.
const ExpiringSoonWindowDays = 30

// CertificationType is a seeded lookup entry (CPR, First Aid, ...).
type CertificationType struct {
	Base
	Name     string `db:"name" json:"name"`
	IsCommon bool   `db:"is_common" json:"is_common"`
}

// Certification is a time-bounded credential owned by a provider.
// Exactly one of TypeID and CustomName is set.
type Certification struct {
	Base
	ProviderID   uuid.UUID           `db:"provider_id" json:"provider_id"`
	TypeID       *uuid.UUID          `db:"type_id" json:"type_id,omitempty"`
	CustomName   *string             `db:"custom_name" json:"custom_name,omitempty"`
	IssuedAt     *time.Time          `db:"issued_at" json:"issued_at,omitempty"`
	ExpirationAt *time.Time          `db:"expiration_at" json:"expiration_at,omitempty"`
	Status       CertificationStatus `db:"status" json:"status"`
	Notes        *string             `db:"notes" json:"notes,omitempty"`

	// TypeName is populated on reads that join certification_types.
	TypeName *string `db:"type_name" json:"type_name,omitempty"`
}

// DisplayName returns the type name when the certification references a
// type, otherwise the custom name.
func (c *Certification) DisplayName() string {
	if c.TypeName != nil && *c.TypeName != "" {
		return *c.TypeName
	}
	if c.CustomName != nil {
		return *c.CustomName
	}
	return ""
}

// DaysUntilExpiration returns the whole number of days between now and
// the expiration date, rounded down; negative once expired.
func DaysUntilExpiration(expirationAt time.Time, now time.Time) int {
	return int(math.Floor(expirationAt.Sub(now).Hours() / 24))
}

// CalendarDaysUntil returns the number of calendar days between now's
// date and the expiration date, ignoring the time of day on the
// current clock. A reminder firing at 09:00 seven days out still says
// seven days, not six.
func CalendarDaysUntil(expirationAt time.Time, now time.Time) int {
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return int(math.Floor(expirationAt.Sub(startOfDay).Hours() / 24))
}

// DeriveStatus computes the lifecycle status from the expiration date.
// The cached status column is a materialized view of this function;
// missing is assigned elsewhere and never derived from dates.
func DeriveStatus(expirationAt *time.Time, now time.Time) CertificationStatus {
	if expirationAt == nil {
		return CertificationStatusActive
	}
	days := DaysUntilExpiration(*expirationAt, now)
	switch {
	case days < 0:
		return CertificationStatusExpired
	case days <= ExpiringSoonWindowDays:
		return CertificationStatusExpiringSoon
	default:
		return CertificationStatusActive
	}
}

type CertificationSummary struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	ExpiringSoon int `json:"expiring_soon"`
	Expired      int `json:"expired"`
	Missing      int `json:"missing"`
}

type CreateCertificationRequest struct {
	TypeID       *uuid.UUID `json:"type_id"`
	CustomName   *string    `json:"custom_name" binding:"omitempty,min=1,max=200"`
	IssuedAt     *time.Time `json:"issued_at"`
	ExpirationAt *time.Time `json:"expiration_at"`
	Notes        *string    `json:"notes" binding:"omitempty,max=2000"`
}

type UpdateCertificationRequest struct {
	TypeID       *uuid.UUID `json:"type_id"`
	CustomName   *string    `json:"custom_name" binding:"omitempty,min=1,max=200"`
	IssuedAt     *time.Time `json:"issued_at"`
	ExpirationAt *time.Time `json:"expiration_at"`
	Notes        *string    `json:"notes" binding:"omitempty,max=2000"`

	// Distinguishes "clear the expiration date" from "leave it alone".
	ClearExpiration bool `json:"clear_expiration,omitempty"`
}

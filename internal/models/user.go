package models

import "time"

type Role string

const (
	RoleCareRecipient Role = "care_recipient"
	RoleCaregiver     Role = "caregiver"
	// RoleSystem is used for transitions driven by internal events, e.g. payment.paid.
	RoleSystem Role = "system"
)

// Actor is the authenticated caller as resolved from the bearer token.
type Actor struct {
	ID    string
	Role  Role
	Email string
}

type User struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityBusy        Availability = "busy"
	AvailabilityUnavailable Availability = "unavailable"
)

// CaregiverProfile carries the denormalized availability flag. The row also
// serves as the per-caregiver lock taken by the booking allocator.
type CaregiverProfile struct {
	UserID             string       `gorm:"type:uuid;primaryKey" json:"user_id"`
	AvailabilityStatus Availability `gorm:"type:varchar(20);not null;default:'available'" json:"availability_status"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

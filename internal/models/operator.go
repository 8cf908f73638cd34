package models

import (
	"time"

	"github.com/google/uuid"
)

// OperatorStatus represents the lifecycle state of an operator account
type OperatorStatus string

const (
	OperatorStatusPending   OperatorStatus = "pending"
	OperatorStatusActive    OperatorStatus = "active"
	OperatorStatusSuspended OperatorStatus = "suspended"
	OperatorStatusRejected  OperatorStatus = "rejected"

	// OperatorStatusApproved is a legacy synonym for "active" still present in
	// older rows. Reads treat it as active; cmd/maintenance/migrate-operator-status
	// rewrites it.
	OperatorStatusApproved OperatorStatus = "approved"
)

// Operator represents a helicopter operator selling seats on the platform
type Operator struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	UserID         uuid.UUID      `json:"user_id" db:"user_id"`
	CompanyName    string         `json:"company_name" db:"company_name"`
	LicenseNumber  string         `json:"license_number" db:"license_number"`
	ContactPerson  *string        `json:"contact_person,omitempty" db:"contact_person"`
	Phone          *string        `json:"phone,omitempty" db:"phone"`
	Status         OperatorStatus `json:"status" db:"status"`
	CommissionRate float64        `json:"commission_rate" db:"commission_rate"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the operator may sell seats
func (o *Operator) IsActive() bool {
	return o.Status == OperatorStatusActive || o.Status == OperatorStatusApproved
}

// BookingBlockReason returns the user-facing reason an inactive operator's
// routes cannot be booked.
func (o *Operator) BookingBlockReason() string {
	switch o.Status {
	case OperatorStatusPending:
		return "this route's operator is pending admin approval"
	case OperatorStatusSuspended:
		return "this route's operator account is suspended"
	case OperatorStatusRejected:
		return "this route's operator application was rejected"
	default:
		return "operator not available for booking"
	}
}

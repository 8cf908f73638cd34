package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // provisional hold active
	BookingStatusPaid      BookingStatus = "paid"      // payment settled
	BookingStatusConfirmed BookingStatus = "confirmed" // terminal success (fulfillment)
	BookingStatusCancelled BookingStatus = "cancelled" // terminal
)

// MaxSeatsPerBooking caps a single reservation
const MaxSeatsPerBooking = 50

// Booking represents one buyer's claim on N seats of a route. A pending
// booking consumes capacity only while its hold is unexpired.
type Booking struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	OperatorID    uuid.UUID     `json:"operator_id" db:"operator_id"`
	RouteID       uuid.UUID     `json:"route_id" db:"route_id"`
	Seats         int           `json:"seats" db:"seats"`
	Status        BookingStatus `json:"status" db:"status"`
	Amount        float64       `json:"amount" db:"amount"`
	Currency      string        `json:"currency" db:"currency"`
	PaymentID     *uuid.UUID    `json:"payment_id,omitempty" db:"payment_id"`
	HoldExpiresAt *time.Time    `json:"hold_expires_at,omitempty" db:"hold_expires_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the booking can no longer change state.
// Only cancelled is strictly terminal; confirmed is terminal with respect
// to payment but may still be cancelled via refund.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCancelled
}

// HoldActive reports whether the provisional hold still consumes capacity
// as of the given instant
func (b *Booking) HoldActive(asOf time.Time) bool {
	if b.Status != BookingStatusPending {
		return b.Status == BookingStatusPaid || b.Status == BookingStatusConfirmed
	}
	return b.HoldExpiresAt == nil || b.HoldExpiresAt.After(asOf)
}

// CreateBookingRequest is the buyer-facing reservation payload
type CreateBookingRequest struct {
	RouteID uuid.UUID `json:"route_id" binding:"required"`
	Seats   int       `json:"seats" binding:"required"`
}

// Validate checks the request before any transaction opens
func (r *CreateBookingRequest) Validate() error {
	if r.RouteID == uuid.Nil {
		return NewValidationError("route id is required")
	}
	if r.Seats < 1 {
		return NewValidationError("at least 1 seat is required")
	}
	if r.Seats > MaxSeatsPerBooking {
		return NewValidationError("maximum 50 seats allowed")
	}
	return nil
}

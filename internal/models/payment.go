package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a payment attempt
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "created"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment represents one attempt to settle one booking. At most one payment
// row exists per booking; re-ordering reuses the row rather than duplicating
// it. A payment transitions to paid at most once.
type Payment struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	BookingID         uuid.UUID     `json:"booking_id" db:"booking_id"`
	Provider          string        `json:"provider" db:"provider"`
	ProviderOrderID   *string       `json:"provider_order_id,omitempty" db:"provider_order_id"`
	ProviderPaymentID *string       `json:"provider_payment_id,omitempty" db:"provider_payment_id"`
	ProviderSignature *string       `json:"-" db:"provider_signature"`
	Status            PaymentStatus `json:"status" db:"status"`
	Amount            float64       `json:"amount" db:"amount"`
	Currency          string        `json:"currency" db:"currency"`
	RefundID          *string       `json:"refund_id,omitempty" db:"refund_id"`
	RefundAmount      *float64      `json:"refund_amount,omitempty" db:"refund_amount"`
	RawEvent          JSONB         `json:"-" db:"raw_event"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// CreateOrderRequest opens a provider order for a booking
type CreateOrderRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
}

// CreateOrderResponse carries the provider order reference the client needs
// to start checkout
type CreateOrderResponse struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	KeyID     string    `json:"key_id"`
}

// VerifyPaymentRequest is the buyer-relayed checkout outcome. Field names
// match what the provider's checkout hands back to the client.
type VerifyPaymentRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
	OrderID   string    `json:"razorpay_order_id" binding:"required"`
	PaymentID string    `json:"razorpay_payment_id" binding:"required"`
	Signature string    `json:"razorpay_signature" binding:"required"`
}

// RefundRequest reverses a settled payment. Amount is optional; omitted
// means full refund.
type RefundRequest struct {
	PaymentID uuid.UUID `json:"payment_id" binding:"required"`
	Amount    *float64  `json:"amount,omitempty"`
	Reason    *string   `json:"reason,omitempty"`
}

// Validate checks the refund request before any transaction opens
func (r *RefundRequest) Validate() error {
	if r.PaymentID == uuid.Nil {
		return NewValidationError("payment id is required")
	}
	if r.Amount != nil && *r.Amount <= 0 {
		return NewValidationError("refund amount must be positive")
	}
	if r.Reason != nil && len(*r.Reason) > 500 {
		return NewValidationError("reason must be at most 500 characters")
	}
	return nil
}

// RefundResponse reports the provider refund reference
type RefundResponse struct {
	Payment  *Payment `json:"payment"`
	RefundID string   `json:"refund_id"`
	Amount   float64  `json:"amount"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by the engine. Payment events keep the raw provider
// payload in metadata for replay.
const (
	AuditActionBookingCreated    = "booking_created"
	AuditActionBookingCancelled  = "booking_cancelled"
	AuditActionOrderCreated      = "payment_order_created"
	AuditActionPaymentVerified   = "payment_verified"
	AuditActionWebhookReceived   = "payment_webhook_received"
	AuditActionSignatureRejected = "payment_signature_rejected"
	AuditActionRefundCompleted   = "payment_refund_completed"
)

// AuditLog is an immutable record of a security- or money-relevant event
type AuditLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty" db:"actor_id"` // nil for provider-originated events
	Action     string     `json:"action" db:"action"`
	EntityType string     `json:"entity_type" db:"entity_type"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty" db:"entity_id"`
	Metadata   JSONB      `json:"metadata,omitempty" db:"metadata"`
	IPAddress  string     `json:"ip_address" db:"ip_address"`
	UserAgent  string     `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

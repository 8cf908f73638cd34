package razorpay

import (
	"encoding/json"
	"fmt"
)

// Webhook event types the engine reacts to. Anything else is acknowledged
// and dropped.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundCreated   = "refund.created"
	EventRefundProcessed = "refund.processed"
)

// WebhookEvent is the envelope Razorpay posts to the webhook endpoint
type WebhookEvent struct {
	Event   string         `json:"event"`
	Payload WebhookPayload `json:"payload"`
}

// WebhookPayload carries the entity the event is about
type WebhookPayload struct {
	Payment *struct {
		Entity *PaymentEntity `json:"entity"`
	} `json:"payment,omitempty"`
	Refund *struct {
		Entity *RefundEntity `json:"entity"`
	} `json:"refund,omitempty"`
}

// PaymentEntity is the provider-side payment record inside a webhook.
// Notes echo the correlation metadata set at order creation.
type PaymentEntity struct {
	ID      string            `json:"id"`
	OrderID string            `json:"order_id"`
	Status  string            `json:"status"`
	Amount  int64             `json:"amount"`
	Notes   map[string]string `json:"notes,omitempty"`
}

// RefundEntity is the provider-side refund record inside a webhook
type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

// ParseWebhookEvent decodes a webhook body. Callers must verify the
// signature over the raw bytes before trusting the result.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("webhook missing event type")
	}
	return &event, nil
}

// PaymentEntity returns the payment entity if present
func (e *WebhookEvent) PaymentEntity() *PaymentEntity {
	if e.Payload.Payment == nil {
		return nil
	}
	return e.Payload.Payment.Entity
}

// RefundEntity returns the refund entity if present
func (e *WebhookEvent) RefundEntity() *RefundEntity {
	if e.Payload.Refund == nil {
		return nil
	}
	return e.Payload.Refund.Entity
}

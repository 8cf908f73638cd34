package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mapsmyway/heli-backend/internal/models"
)

const paymentColumns = `
	id, booking_id, provider, provider_order_id, provider_payment_id,
	provider_signature, status, amount, currency, refund_id, refund_amount,
	raw_event, created_at, updated_at`

// PaymentRepository handles payment database operations
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// BeginTx starts a new transaction
func (r *PaymentRepository) BeginTx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// CreatePayment inserts a new payment in created status
func (r *PaymentRepository) CreatePayment(payment *models.Payment) error {
	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt

	query := `
		INSERT INTO payments (
			id, booking_id, provider, provider_order_id, status, amount,
			currency, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(query,
		payment.ID, payment.BookingID, payment.Provider, payment.ProviderOrderID,
		payment.Status, payment.Amount, payment.Currency,
		payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPaymentByID retrieves a payment by ID, nil if absent
func (r *PaymentRepository) GetPaymentByID(paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	err := r.db.Get(&payment, query, paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// GetPaymentByBookingID retrieves the payment attached to a booking, nil if
// absent. At most one row exists per booking (unique constraint).
func (r *PaymentRepository) GetPaymentByBookingID(bookingID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1`
	err := r.db.Get(&payment, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by booking: %w", err)
	}
	return &payment, nil
}

// GetPaymentForUpdate loads the payment for a booking and order inside the
// caller's transaction with a row lock. The lock is what serializes the
// verification call against the webhook when both report the same outcome.
func (r *PaymentRepository) GetPaymentForUpdate(tx *sqlx.Tx, bookingID uuid.UUID, orderID string) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 AND provider_order_id = $2 FOR UPDATE`
	err := tx.Get(&payment, query, bookingID, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	return &payment, nil
}

// GetPaymentByIDForUpdate loads a payment by ID inside the caller's
// transaction with a row lock
func (r *PaymentRepository) GetPaymentByIDForUpdate(tx *sqlx.Tx, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	err := tx.Get(&payment, query, paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	return &payment, nil
}

// GetPaymentByProviderPaymentID finds the payment carrying a provider-side
// payment reference (refund webhooks correlate on it), nil if absent
func (r *PaymentRepository) GetPaymentByProviderPaymentID(providerPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1`
	err := r.db.Get(&payment, query, providerPaymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by provider id: %w", err)
	}
	return &payment, nil
}

// ResetPaymentOrder reuses an existing unpaid payment for a fresh provider
// order: overwrites the order reference and returns the row to created.
// The status guard refuses to touch a payment that already settled.
func (r *PaymentRepository) ResetPaymentOrder(paymentID uuid.UUID, orderID string) error {
	query := `
		UPDATE payments
		SET provider_order_id = $2, status = 'created', updated_at = NOW()
		WHERE id = $1 AND status <> 'paid' AND status <> 'refunded'`
	result, err := r.db.Exec(query, paymentID, orderID)
	if err != nil {
		return fmt.Errorf("failed to reset payment order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewInvalidState("payment already settled")
	}
	return nil
}

// MarkPaymentPaid transitions a payment to paid inside the caller's
// transaction, recording the provider payment reference and signature
func (r *PaymentRepository) MarkPaymentPaid(tx *sqlx.Tx, paymentID uuid.UUID, providerPaymentID, signature string) error {
	query := `
		UPDATE payments
		SET status = 'paid', provider_payment_id = $2, provider_signature = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ('created', 'failed')`
	result, err := tx.Exec(query, paymentID, providerPaymentID, signature)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewInvalidState("payment not in a payable status")
	}
	return nil
}

// MarkPaymentFailed records a failed settlement attempt inside the caller's
// transaction
func (r *PaymentRepository) MarkPaymentFailed(tx *sqlx.Tx, paymentID uuid.UUID, providerPaymentID, signature string) error {
	query := `
		UPDATE payments
		SET status = 'failed', provider_payment_id = $2, provider_signature = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'created'`
	_, err := tx.Exec(query, paymentID, providerPaymentID, signature)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return nil
}

// MarkPaymentRefunded transitions a payment to refunded inside the caller's
// transaction
func (r *PaymentRepository) MarkPaymentRefunded(tx *sqlx.Tx, paymentID uuid.UUID, refundID string, refundAmount float64) error {
	query := `
		UPDATE payments
		SET status = 'refunded', refund_id = $2, refund_amount = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'paid'`
	result, err := tx.Exec(query, paymentID, refundID, refundAmount)
	if err != nil {
		return fmt.Errorf("failed to mark payment refunded: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewInvalidState("payment not in paid status")
	}
	return nil
}

// UpdateRawEvent stores the last-received provider event for audit/replay.
// Runs on every webhook receipt, including idempotent no-ops.
func (r *PaymentRepository) UpdateRawEvent(paymentID uuid.UUID, event models.JSONB) error {
	query := `UPDATE payments SET raw_event = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.Exec(query, paymentID, event)
	if err != nil {
		return fmt.Errorf("failed to store raw event: %w", err)
	}
	return nil
}

// UpdateRawEventTx is UpdateRawEvent inside the caller's transaction
func (r *PaymentRepository) UpdateRawEventTx(tx *sqlx.Tx, paymentID uuid.UUID, event models.JSONB) error {
	query := `UPDATE payments SET raw_event = $2, updated_at = NOW() WHERE id = $1`
	_, err := tx.Exec(query, paymentID, event)
	if err != nil {
		return fmt.Errorf("failed to store raw event: %w", err)
	}
	return nil
}

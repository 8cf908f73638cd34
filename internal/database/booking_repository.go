package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mapsmyway/heli-backend/internal/models"
)

const bookingColumns = `
	id, user_id, operator_id, route_id, seats, status, amount, currency,
	payment_id, hold_expires_at, created_at, updated_at`

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// BeginTx starts a new transaction
func (r *BookingRepository) BeginTx() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

// SeatsInUse sums the seats consumed on a route as of the given instant:
// paid and confirmed bookings always count, pending bookings only while
// their hold is unexpired. Expired holds fall out of the sum without any
// status rewrite (lazy expiry). Must run inside the same transaction as the
// capacity-consuming write.
func (r *BookingRepository) SeatsInUse(tx *sqlx.Tx, routeID uuid.UUID, asOf time.Time) (int, error) {
	var used int
	query := `
		SELECT COALESCE(SUM(seats), 0)
		FROM bookings
		WHERE route_id = $1
		  AND status IN ('pending', 'paid', 'confirmed')
		  AND (hold_expires_at IS NULL OR hold_expires_at > $2)`
	if err := tx.Get(&used, query, routeID, asOf); err != nil {
		return 0, fmt.Errorf("failed to sum seats in use: %w", err)
	}
	return used, nil
}

// CreateBooking inserts a new pending booking inside the caller's transaction
func (r *BookingRepository) CreateBooking(tx *sqlx.Tx, booking *models.Booking) error {
	booking.ID = uuid.New()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	query := `
		INSERT INTO bookings (
			id, user_id, operator_id, route_id, seats, status, amount, currency,
			hold_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(query,
		booking.ID, booking.UserID, booking.OperatorID, booking.RouteID,
		booking.Seats, booking.Status, booking.Amount, booking.Currency,
		booking.HoldExpiresAt, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetBookingByID retrieves a booking by ID, nil if absent
func (r *BookingRepository) GetBookingByID(bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	err := r.db.Get(&booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// MarkBookingPaid transitions a booking to paid inside the caller's
// transaction, clearing the hold so the seats are permanently counted.
// The status guard keeps cancelled bookings cancelled.
func (r *BookingRepository) MarkBookingPaid(tx *sqlx.Tx, bookingID, paymentID uuid.UUID) error {
	query := `
		UPDATE bookings
		SET status = 'paid', payment_id = $2, hold_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	result, err := tx.Exec(query, bookingID, paymentID)
	if err != nil {
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.NewInvalidState("booking not in pending status")
	}
	return nil
}

// CancelBooking transitions a booking to cancelled and expires its hold
// immediately, freeing capacity without waiting for natural expiry
func (r *BookingRepository) CancelBooking(bookingID uuid.UUID) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled', hold_expires_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'`
	_, err := r.db.Exec(query, bookingID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	return nil
}

// CancelBookingTx is CancelBooking inside the caller's transaction
func (r *BookingRepository) CancelBookingTx(tx *sqlx.Tx, bookingID uuid.UUID) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled', hold_expires_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'`
	_, err := tx.Exec(query, bookingID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	return nil
}

// GetBookingsByUser lists a traveler's bookings, newest first
func (r *BookingRepository) GetBookingsByUser(userID uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.Select(&bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return bookings, nil
}

// GetBookingsByOperator lists an operator's bookings, newest first
func (r *BookingRepository) GetBookingsByOperator(operatorID uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE operator_id = $1 ORDER BY created_at DESC`
	if err := r.db.Select(&bookings, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to get operator bookings: %w", err)
	}
	return bookings, nil
}

// ExpireStaleHolds flips pending bookings whose hold has lapsed to
// cancelled. Pure hygiene: the capacity query already ignores expired holds,
// so correctness never depends on this running.
func (r *BookingRepository) ExpireStaleHolds(limit int) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM bookings
			WHERE status = 'pending' AND hold_expires_at IS NOT NULL AND hold_expires_at < NOW()
			LIMIT $1
		)`
	result, err := r.db.Exec(query, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale holds: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

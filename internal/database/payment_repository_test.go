package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapsmyway/heli-backend/internal/models"
)

func paymentTestColumns() []string {
	return []string{
		"id", "booking_id", "provider", "provider_order_id", "provider_payment_id",
		"provider_signature", "status", "amount", "currency", "refund_id",
		"refund_amount", "raw_event", "created_at", "updated_at",
	}
}

func TestCreatePayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	t.Run("Success", func(t *testing.T) {
		orderID := "order_abc123"
		payment := &models.Payment{
			BookingID:       uuid.New(),
			Provider:        "razorpay",
			ProviderOrderID: &orderID,
			Status:          models.PaymentStatusCreated,
			Amount:          24000,
			Currency:        "LKR",
		}

		mock.ExpectExec(`INSERT INTO payments`).
			WithArgs(
				sqlmock.AnyArg(), payment.BookingID, payment.Provider, payment.ProviderOrderID,
				payment.Status, payment.Amount, payment.Currency,
				sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CreatePayment(payment)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, payment.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestResetPaymentOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	paymentID := uuid.New()

	t.Run("Reuses Unpaid Row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "order_new").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ResetPaymentOrder(paymentID, "order_new")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Refuses Settled Payment", func(t *testing.T) {
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "order_new").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.ResetPaymentOrder(paymentID, "order_new")
		assert.Error(t, err)
		assert.Equal(t, models.KindInvalidState, models.KindOf(err))
		assert.Contains(t, err.Error(), "already settled")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkPaymentPaid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	paymentID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "pay_xyz", "sig").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := repo.BeginTx()
		require.NoError(t, err)

		err = repo.MarkPaymentPaid(tx, paymentID, "pay_xyz", "sig")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Paid", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "pay_xyz", "sig").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := repo.BeginTx()
		require.NoError(t, err)
		defer tx.Rollback()

		err = repo.MarkPaymentPaid(tx, paymentID, "pay_xyz", "sig")
		assert.Error(t, err)
		assert.Equal(t, models.KindInvalidState, models.KindOf(err))
		assert.Contains(t, err.Error(), "not in a payable status")
		require.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkPaymentRefunded(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	paymentID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "rfnd_1", 24000.0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := repo.BeginTx()
		require.NoError(t, err)

		err = repo.MarkPaymentRefunded(tx, paymentID, "rfnd_1", 24000.0)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Second Refund Rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(paymentID, "rfnd_2", 24000.0).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := repo.BeginTx()
		require.NoError(t, err)
		defer tx.Rollback()

		err = repo.MarkPaymentRefunded(tx, paymentID, "rfnd_2", 24000.0)
		assert.Error(t, err)
		assert.Equal(t, models.KindInvalidState, models.KindOf(err))
		assert.Contains(t, err.Error(), "not in paid status")
		require.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetPaymentByBookingID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	t.Run("Not Found Returns Nil", func(t *testing.T) {
		bookingID := uuid.New()
		mock.ExpectQuery(`FROM payments WHERE booking_id`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows(paymentTestColumns()))

		payment, err := repo.GetPaymentByBookingID(bookingID)
		require.NoError(t, err)
		assert.Nil(t, payment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		bookingID := uuid.New()
		paymentID := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`FROM payments WHERE booking_id`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows(paymentTestColumns()).AddRow(
				paymentID, bookingID, "razorpay", "order_abc", nil,
				nil, "created", 24000.0, "LKR", nil,
				nil, nil, now, now,
			))

		payment, err := repo.GetPaymentByBookingID(bookingID)
		require.NoError(t, err)
		require.NotNil(t, payment)
		assert.Equal(t, paymentID, payment.ID)
		assert.Equal(t, models.PaymentStatusCreated, payment.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

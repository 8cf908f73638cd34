package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/mapsmyway/heli-backend/internal/database"
)

func newHoldExpirationService(db *sqlx.DB) *HoldExpirationService {
	return NewHoldExpirationService(database.NewBookingRepository(db), time.Minute, newTestLogger())
}

func TestHoldExpirationRunOnce(t *testing.T) {
	t.Run("Sweeps Expired Holds In Batches", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newHoldExpirationService(db)

		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(100).
			WillReturnResult(sqlmock.NewResult(0, 3))

		svc.RunOnce()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Sweep Failure Is Logged Not Fatal", func(t *testing.T) {
		db, mock := newTestDB(t)
		svc := newHoldExpirationService(db)

		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(100).
			WillReturnError(fmt.Errorf("database error"))

		svc.RunOnce()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHoldExpirationStartStop(t *testing.T) {
	db, mock := newTestDB(t)
	svc := newHoldExpirationService(db)

	// The startup sweep fires before the first tick
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs(100).
		WillReturnResult(sqlmock.NewResult(0, 0))

	svc.Start()
	time.Sleep(50 * time.Millisecond)
	svc.Stop()

	assert.NoError(t, mock.ExpectationsWereMet())
}

package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mapsmyway/heli-backend/internal/models"
)

const operatorColumns = `
	id, user_id, company_name, license_number, contact_person, phone,
	status, commission_rate, created_at, updated_at`

// OperatorRepository handles operator database operations
type OperatorRepository struct {
	db *sqlx.DB
}

// NewOperatorRepository creates a new OperatorRepository
func NewOperatorRepository(db *sqlx.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// GetOperatorByID retrieves an operator by ID, nil if absent
func (r *OperatorRepository) GetOperatorByID(operatorID uuid.UUID) (*models.Operator, error) {
	var operator models.Operator
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`
	err := r.db.Get(&operator, query, operatorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &operator, nil
}

// GetOperatorByIDTx is GetOperatorByID inside the caller's transaction
func (r *OperatorRepository) GetOperatorByIDTx(tx *sqlx.Tx, operatorID uuid.UUID) (*models.Operator, error) {
	var operator models.Operator
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`
	err := tx.Get(&operator, query, operatorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &operator, nil
}

// GetOperatorByUserID retrieves the operator account owned by a user
func (r *OperatorRepository) GetOperatorByUserID(userID uuid.UUID) (*models.Operator, error) {
	var operator models.Operator
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE user_id = $1`
	err := r.db.Get(&operator, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator by user: %w", err)
	}
	return &operator, nil
}

// MigrateLegacyApprovedStatus rewrites the legacy 'approved' operator status
// to 'active'. Returns the number of rows rewritten.
func (r *OperatorRepository) MigrateLegacyApprovedStatus() (int64, error) {
	result, err := r.db.Exec(`UPDATE operators SET status = 'active', updated_at = NOW() WHERE status = 'approved'`)
	if err != nil {
		return 0, fmt.Errorf("failed to migrate operator statuses: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mapsmyway/heli-backend/internal/models"
)

const routeColumns = `
	id, operator_id, from_code, to_code, departure_time, arrival_time,
	base_price, currency, total_seats, status, created_at, updated_at`

// RouteRepository handles route database operations
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// CreateRoute inserts a new route
func (r *RouteRepository) CreateRoute(route *models.Route) error {
	route.ID = uuid.New()
	route.CreatedAt = time.Now()
	route.UpdatedAt = route.CreatedAt

	query := `
		INSERT INTO routes (
			id, operator_id, from_code, to_code, departure_time, arrival_time,
			base_price, currency, total_seats, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(query,
		route.ID, route.OperatorID, route.FromCode, route.ToCode,
		route.DepartureTime, route.ArrivalTime, route.BasePrice, route.Currency,
		route.TotalSeats, route.Status, route.CreatedAt, route.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create route: %w", err)
	}
	return nil
}

// GetRouteByID retrieves a route by ID, nil if absent
func (r *RouteRepository) GetRouteByID(routeID uuid.UUID) (*models.Route, error) {
	var route models.Route
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`
	err := r.db.Get(&route, query, routeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &route, nil
}

// GetRouteForUpdate loads a route inside the given transaction with a row
// lock, serializing concurrent reservations against the same departure.
func (r *RouteRepository) GetRouteForUpdate(tx *sqlx.Tx, routeID uuid.UUID) (*models.Route, error) {
	var route models.Route
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1 FOR UPDATE`
	err := tx.Get(&route, query, routeID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock route: %w", err)
	}
	return &route, nil
}

// SearchRoutes lists active routes, optionally filtered by origin,
// destination and departure date
func (r *RouteRepository) SearchRoutes(req *models.SearchRoutesRequest) ([]models.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE status = 'active'`
	args := []interface{}{}
	idx := 1

	if req.FromCode != "" {
		query += fmt.Sprintf(" AND from_code = $%d", idx)
		args = append(args, req.FromCode)
		idx++
	}
	if req.ToCode != "" {
		query += fmt.Sprintf(" AND to_code = $%d", idx)
		args = append(args, req.ToCode)
		idx++
	}
	if req.Date != "" {
		query += fmt.Sprintf(" AND DATE(departure_time) = $%d", idx)
		args = append(args, req.Date)
		idx++
	}
	query += " ORDER BY departure_time ASC"

	routes := []models.Route{}
	if err := r.db.Select(&routes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search routes: %w", err)
	}
	return routes, nil
}

// GetRoutesByOperator lists all routes owned by an operator
func (r *RouteRepository) GetRoutesByOperator(operatorID uuid.UUID) ([]models.Route, error) {
	routes := []models.Route{}
	query := `SELECT ` + routeColumns + ` FROM routes WHERE operator_id = $1 ORDER BY departure_time DESC`
	if err := r.db.Select(&routes, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to get operator routes: %w", err)
	}
	return routes, nil
}

// UpdateRoute applies a partial edit and returns the updated row
func (r *RouteRepository) UpdateRoute(routeID uuid.UUID, req *models.UpdateRouteRequest) (*models.Route, error) {
	query := `
		UPDATE routes SET
			departure_time = COALESCE($2, departure_time),
			arrival_time   = COALESCE($3, arrival_time),
			base_price     = COALESCE($4, base_price),
			total_seats    = COALESCE($5, total_seats),
			status         = COALESCE($6, status),
			updated_at     = NOW()
		WHERE id = $1
		RETURNING ` + routeColumns

	var route models.Route
	err := r.db.Get(&route, query, routeID,
		req.DepartureTime, req.ArrivalTime, req.BasePrice, req.TotalSeats, req.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update route: %w", err)
	}
	return &route, nil
}

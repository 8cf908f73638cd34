package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RouteStatus represents whether a route is open for booking
type RouteStatus string

const (
	RouteStatusActive   RouteStatus = "active"
	RouteStatusInactive RouteStatus = "inactive"
)

// Route represents a scheduled helicopter departure offered by an operator
type Route struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	OperatorID    uuid.UUID   `json:"operator_id" db:"operator_id"`
	FromCode      string      `json:"from" db:"from_code"`
	ToCode        string      `json:"to" db:"to_code"`
	DepartureTime time.Time   `json:"departure_time" db:"departure_time"`
	ArrivalTime   time.Time   `json:"arrival_time" db:"arrival_time"`
	BasePrice     float64     `json:"base_price" db:"base_price"`
	Currency      string      `json:"currency" db:"currency"`
	TotalSeats    int         `json:"total_seats" db:"total_seats"`
	Status        RouteStatus `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// CreateRouteRequest is the operator-facing payload for publishing a route
type CreateRouteRequest struct {
	FromCode      string    `json:"from" binding:"required"`
	ToCode        string    `json:"to" binding:"required"`
	DepartureTime time.Time `json:"departure_time" binding:"required"`
	ArrivalTime   time.Time `json:"arrival_time" binding:"required"`
	BasePrice     float64   `json:"base_price" binding:"required"`
	Currency      string    `json:"currency"`
	TotalSeats    int       `json:"total_seats" binding:"required"`
}

// Validate checks the request beyond what binding covers
func (r *CreateRouteRequest) Validate() error {
	if strings.TrimSpace(r.FromCode) == "" || strings.TrimSpace(r.ToCode) == "" {
		return NewValidationError("origin and destination codes are required")
	}
	if strings.EqualFold(r.FromCode, r.ToCode) {
		return NewValidationError("origin and destination must differ")
	}
	if !r.ArrivalTime.After(r.DepartureTime) {
		return NewValidationError("arrival time must be after departure time")
	}
	if r.BasePrice <= 0 {
		return NewValidationError("base price must be positive")
	}
	if r.TotalSeats < 1 {
		return NewValidationError("total seats must be at least 1")
	}
	return nil
}

// UpdateRouteRequest is a partial route edit; nil fields are left unchanged
type UpdateRouteRequest struct {
	DepartureTime *time.Time   `json:"departure_time,omitempty"`
	ArrivalTime   *time.Time   `json:"arrival_time,omitempty"`
	BasePrice     *float64     `json:"base_price,omitempty"`
	TotalSeats    *int         `json:"total_seats,omitempty"`
	Status        *RouteStatus `json:"status,omitempty"`
}

// Validate checks the provided fields
func (r *UpdateRouteRequest) Validate() error {
	if r.BasePrice != nil && *r.BasePrice <= 0 {
		return NewValidationError("base price must be positive")
	}
	if r.TotalSeats != nil && *r.TotalSeats < 1 {
		return NewValidationError("total seats must be at least 1")
	}
	if r.Status != nil && *r.Status != RouteStatusActive && *r.Status != RouteStatusInactive {
		return NewValidationError("status must be active or inactive")
	}
	return nil
}

// SearchRoutesRequest filters the public route listing
type SearchRoutesRequest struct {
	FromCode string `form:"from"`
	ToCode   string `form:"to"`
	Date     string `form:"date"` // YYYY-MM-DD, matches departure date
}

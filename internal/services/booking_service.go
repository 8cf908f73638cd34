package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mapsmyway/heli-backend/internal/database"
	"github.com/mapsmyway/heli-backend/internal/models"
)

// Actor identifies the authenticated caller for permission checks
type Actor struct {
	ID   uuid.UUID
	Role string
}

// BookingService owns the reservation transaction: capacity check and
// booking insert run atomically under a route row lock, so two concurrent
// reservations for the same route serialize and the loser sees the winner's
// seats in the capacity sum.
type BookingService struct {
	bookingRepo  *database.BookingRepository
	routeRepo    *database.RouteRepository
	operatorRepo *database.OperatorRepository
	auditService *AuditService
	holdDuration time.Duration
	logger       *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo *database.BookingRepository,
	routeRepo *database.RouteRepository,
	operatorRepo *database.OperatorRepository,
	auditService *AuditService,
	holdDuration time.Duration,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:  bookingRepo,
		routeRepo:    routeRepo,
		operatorRepo: operatorRepo,
		auditService: auditService,
		holdDuration: holdDuration,
		logger:       logger,
	}
}

// Reserve atomically claims seats on a route. On success the booking is
// pending with a hold expiring holdDuration from now; the hold consumes
// capacity until it expires or the booking is paid or cancelled.
func (s *BookingService) Reserve(userID uuid.UUID, req *models.CreateBookingRequest, meta RequestMeta) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.bookingRepo.BeginTx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Route row lock serializes concurrent reservations on the same route
	route, err := s.routeRepo.GetRouteForUpdate(tx, req.RouteID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, models.NewNotFound("route not found")
	}
	if route.Status != models.RouteStatusActive {
		return nil, models.NewInvalidState("route is not open for booking")
	}

	operator, err := s.operatorRepo.GetOperatorByIDTx(tx, route.OperatorID)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, models.NewNotFound("operator not found")
	}
	if !operator.IsActive() {
		return nil, models.NewForbidden(operator.BookingBlockReason())
	}

	now := time.Now()
	used, err := s.bookingRepo.SeatsInUse(tx, route.ID, now)
	if err != nil {
		return nil, err
	}
	if used+req.Seats > route.TotalSeats {
		s.logger.WithFields(logrus.Fields{
			"route_id":  route.ID,
			"requested": req.Seats,
			"available": route.TotalSeats - used,
		}).Warn("Reservation rejected: not enough seats")
		return nil, models.NewCapacityExceeded("not enough seats available")
	}

	holdExpiry := now.Add(s.holdDuration)
	booking := &models.Booking{
		UserID:        userID,
		OperatorID:    route.OperatorID,
		RouteID:       route.ID,
		Seats:         req.Seats,
		Status:        models.BookingStatusPending,
		Amount:        float64(req.Seats) * route.BasePrice,
		Currency:      route.Currency,
		HoldExpiresAt: &holdExpiry,
	}
	if err := s.bookingRepo.CreateBooking(tx, booking); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"route_id":   route.ID,
		"user_id":    userID,
		"seats":      req.Seats,
		"amount":     booking.Amount,
	}).Info("Booking reserved")

	s.auditService.LogBooking(userID, models.AuditActionBookingCreated, booking.ID, map[string]interface{}{
		"route_id": route.ID.String(),
		"seats":    req.Seats,
		"amount":   booking.Amount,
	}, meta)

	return booking, nil
}

// Cancel transitions a booking to cancelled and frees its seats immediately.
// Cancelling an already-cancelled booking is a no-op success. Only the owner,
// the route's operator, or an admin may cancel.
func (s *BookingService) Cancel(actor Actor, bookingID uuid.UUID, meta RequestMeta) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.NewNotFound("booking not found")
	}

	if err := s.authorizeCancel(actor, booking); err != nil {
		return nil, err
	}

	if booking.Status == models.BookingStatusCancelled {
		return booking, nil
	}

	if err := s.bookingRepo.CancelBooking(bookingID); err != nil {
		return nil, err
	}
	booking.Status = models.BookingStatusCancelled

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"actor_id":   actor.ID,
	}).Info("Booking cancelled")

	s.auditService.LogBooking(actor.ID, models.AuditActionBookingCancelled, bookingID, map[string]interface{}{
		"actor_role": actor.Role,
	}, meta)

	return booking, nil
}

func (s *BookingService) authorizeCancel(actor Actor, booking *models.Booking) error {
	if actor.Role == models.RoleAdmin || booking.UserID == actor.ID {
		return nil
	}
	if actor.Role == models.RoleOperator {
		operator, err := s.operatorRepo.GetOperatorByUserID(actor.ID)
		if err != nil {
			return err
		}
		if operator != nil && operator.ID == booking.OperatorID {
			return nil
		}
	}
	return models.NewForbidden("not allowed to cancel this booking")
}

// GetBooking returns one booking, visible to its owner, its operator, or an
// admin
func (s *BookingService) GetBooking(actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetBookingByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.NewNotFound("booking not found")
	}
	if err := s.authorizeCancel(actor, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListUserBookings returns the caller's bookings, newest first
func (s *BookingService) ListUserBookings(userID uuid.UUID) ([]models.Booking, error) {
	return s.bookingRepo.GetBookingsByUser(userID)
}

// ListOperatorBookings returns the bookings on the caller's operator account
func (s *BookingService) ListOperatorBookings(userID uuid.UUID) ([]models.Booking, error) {
	operator, err := s.operatorRepo.GetOperatorByUserID(userID)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, models.NewNotFound("operator account not found")
	}
	return s.bookingRepo.GetBookingsByOperator(operator.ID)
}

// AvailableSeats reports how many seats remain bookable on a route right now
func (s *BookingService) AvailableSeats(routeID uuid.UUID) (int, error) {
	tx, err := s.bookingRepo.BeginTx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	route, err := s.routeRepo.GetRouteForUpdate(tx, routeID)
	if err != nil {
		return 0, err
	}
	if route == nil {
		return 0, models.NewNotFound("route not found")
	}

	used, err := s.bookingRepo.SeatsInUse(tx, routeID, time.Now())
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	available := route.TotalSeats - used
	if available < 0 {
		available = 0
	}
	return available, nil
}

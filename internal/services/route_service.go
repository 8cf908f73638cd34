package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mapsmyway/heli-backend/internal/database"
	"github.com/mapsmyway/heli-backend/internal/models"
)

// RouteService manages the route catalog operators sell seats on
type RouteService struct {
	routeRepo    *database.RouteRepository
	operatorRepo *database.OperatorRepository
	logger       *logrus.Logger
}

// NewRouteService creates a new route service
func NewRouteService(routeRepo *database.RouteRepository, operatorRepo *database.OperatorRepository, logger *logrus.Logger) *RouteService {
	return &RouteService{
		routeRepo:    routeRepo,
		operatorRepo: operatorRepo,
		logger:       logger,
	}
}

// CreateRoute publishes a new route on the caller's operator account. Only
// active operators may publish.
func (s *RouteService) CreateRoute(userID uuid.UUID, req *models.CreateRouteRequest) (*models.Route, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	operator, err := s.operatorRepo.GetOperatorByUserID(userID)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, models.NewNotFound("operator account not found")
	}
	if !operator.IsActive() {
		return nil, models.NewForbidden(operator.BookingBlockReason())
	}

	currency := req.Currency
	if currency == "" {
		currency = "LKR"
	}

	route := &models.Route{
		OperatorID:    operator.ID,
		FromCode:      req.FromCode,
		ToCode:        req.ToCode,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		BasePrice:     req.BasePrice,
		Currency:      currency,
		TotalSeats:    req.TotalSeats,
		Status:        models.RouteStatusActive,
	}
	if err := s.routeRepo.CreateRoute(route); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"route_id":    route.ID,
		"operator_id": operator.ID,
		"from":        route.FromCode,
		"to":          route.ToCode,
	}).Info("Route created")

	return route, nil
}

// UpdateRoute applies a partial edit to a route the caller's operator owns
func (s *RouteService) UpdateRoute(userID uuid.UUID, routeID uuid.UUID, req *models.UpdateRouteRequest) (*models.Route, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, models.NewNotFound("route not found")
	}

	operator, err := s.operatorRepo.GetOperatorByUserID(userID)
	if err != nil {
		return nil, err
	}
	if operator == nil || operator.ID != route.OperatorID {
		return nil, models.NewForbidden("not allowed to edit this route")
	}

	updated, err := s.routeRepo.UpdateRoute(routeID, req)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, models.NewNotFound("route not found")
	}
	return updated, nil
}

// SearchRoutes lists bookable routes matching the filters
func (s *RouteService) SearchRoutes(req *models.SearchRoutesRequest) ([]models.Route, error) {
	return s.routeRepo.SearchRoutes(req)
}

// GetRoute returns one route
func (s *RouteService) GetRoute(routeID uuid.UUID) (*models.Route, error) {
	route, err := s.routeRepo.GetRouteByID(routeID)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, models.NewNotFound("route not found")
	}
	return route, nil
}

// ListOperatorRoutes returns the routes on the caller's operator account
func (s *RouteService) ListOperatorRoutes(userID uuid.UUID) ([]models.Route, error) {
	operator, err := s.operatorRepo.GetOperatorByUserID(userID)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, models.NewNotFound("operator account not found")
	}
	return s.routeRepo.GetRoutesByOperator(operator.ID)
}

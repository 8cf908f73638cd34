package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mapsmyway/heli-backend/internal/middleware"
	"github.com/mapsmyway/heli-backend/internal/models"
	"github.com/mapsmyway/heli-backend/internal/services"
)

// RouteHandler serves the route catalog endpoints
type RouteHandler struct {
	routeService   *services.RouteService
	bookingService *services.BookingService
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(routeService *services.RouteService, bookingService *services.BookingService) *RouteHandler {
	return &RouteHandler{
		routeService:   routeService,
		bookingService: bookingService,
	}
}

// SearchRoutes lists bookable routes
// GET /api/v1/routes
func (h *RouteHandler) SearchRoutes(c *gin.Context) {
	var req models.SearchRoutesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	routes, err := h.routeService.SearchRoutes(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, routes)
}

// GetRoute returns one route with its live seat availability
// GET /api/v1/routes/:id
func (h *RouteHandler) GetRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	route, err := h.routeService.GetRoute(routeID)
	if err != nil {
		respondError(c, err)
		return
	}

	available, err := h.bookingService.AvailableSeats(routeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"route":           route,
		"seats_available": available,
	})
}

// CreateRoute publishes a new route
// POST /api/v1/routes
func (h *RouteHandler) CreateRoute(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	route, err := h.routeService.CreateRoute(userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, route)
}

// UpdateRoute applies a partial edit to a route
// PUT /api/v1/routes/:id
func (h *RouteHandler) UpdateRoute(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route id"})
		return
	}

	var req models.UpdateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	route, err := h.routeService.UpdateRoute(userCtx.UserID, routeID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, route)
}

// GetMyRoutes lists routes on the caller's operator account
// GET /api/v1/routes/mine
func (h *RouteHandler) GetMyRoutes(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	routes, err := h.routeService.ListOperatorRoutes(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, routes)
}

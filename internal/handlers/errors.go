package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mapsmyway/heli-backend/internal/models"
	"github.com/mapsmyway/heli-backend/internal/services"
	"github.com/mapsmyway/heli-backend/internal/utils"
)

// respondError maps a service error to an HTTP status and JSON body. Unknown
// errors become a 500 with a generic message so internals never leak.
func respondError(c *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case models.KindValidation, models.KindSignatureInvalid,
		models.KindInvalidState, models.KindCapacityExceeded:
		status = http.StatusBadRequest
	case models.KindNotFound:
		status = http.StatusNotFound
	case models.KindForbidden:
		status = http.StatusForbidden
	case models.KindProviderError:
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"error": appErr.Message,
		"code":  string(appErr.Kind),
	})
}

// requestMeta collects client details for audit entries
func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
}

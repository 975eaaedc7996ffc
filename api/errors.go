package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/gin-gonic/gin"
)

// writeError maps lifecycle errors onto HTTP statuses. Causes of internal
// failures are logged, never returned.
func writeError(c *gin.Context, log logger.Logger, err error) {
	var (
		verr *domain.ValidationError
		perr *domain.PolicyError
	)
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, envelope{
			Success: false,
			Message: "Validation failed",
			Errors:  verr.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, "Booking not found")
	case errors.Is(err, domain.ErrForbidden):
		fail(c, http.StatusForbidden, "Access denied")
	case errors.As(err, &perr):
		fail(c, http.StatusBadRequest, perr.Reason)
	default:
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
)

// statusFor maps a service error to its HTTP status. Order matters: the
// specific errors are checked before the taxonomy sentinels they wrap.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError aborts with the status for err. Upstream and unknown failures
// are logged and answered with a generic message.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		abortWithError(c, code, "An unexpected error occurred. Please try again later.")
		return
	}
	abortWithError(c, code, err.Error())
}

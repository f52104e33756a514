package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
)

// checkRevoked aborts the request when the token's JTI was logged out.
// It reports whether the request may continue.
func checkRevoked(c *gin.Context, authService *service.AuthService, claims *service.Claims) bool {
	err := authService.CheckRevoked(c.Request.Context(), claims.ID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, service.ErrTokenRevoked):
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRevoked)
	default:
		response.InternalError(c, err, "Revocation check failed")
		c.Abort()
	}
	return false
}

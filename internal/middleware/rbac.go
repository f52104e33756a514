package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/response"
)

// RequireStaff allows only staff accounts. Must run after RequireJWT.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !claims.IsStaff {
			response.AbortFail(c, http.StatusForbidden, response.ErrStaffOnly)
			return
		}
		c.Next()
	}
}

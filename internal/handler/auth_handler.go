package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/middleware"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
	"github.com/stemsi/elearning-backend/internal/validator"
)

// AuthHandler handles account and token endpoints.
type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, userService *service.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// Register godoc
// POST /api/v1/auth/users/
// Creates a student account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err, "Failed to register user")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// CreateToken godoc
// POST /api/v1/auth/jwt/create/
// Exchanges email and password for an access token.
func (h *AuthHandler) CreateToken(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err, "Failed to log in")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"access": token})
}

// VerifyToken godoc
// POST /api/v1/auth/jwt/verify/
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req model.VerifyTokenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims, err := h.authService.ValidateToken(req.Token)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}
	if err := h.authService.CheckRevoked(c.Request.Context(), claims.ID); err != nil {
		fail(c, err, "Failed to check token")
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Logout godoc
// POST /api/v1/auth/logout/
// Revokes the caller's token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Revoke(c.Request.Context(), claims); err != nil {
		response.InternalError(c, err, "Failed to revoke token")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// Me godoc
// GET /api/v1/auth/users/me/
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	user, err := h.userService.Me(c.Request.Context(), p)
	if err != nil {
		fail(c, err, "Failed to load user")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// ResetPassword godoc
// POST /api/v1/reset_password/
// Staff may reset any account; everyone else only their own.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.ResetPasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), p, req); err != nil {
		fail(c, err, "Failed to reset password")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Password reset successfully."})
}

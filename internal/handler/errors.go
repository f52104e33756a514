package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/elearning-backend/internal/middleware"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
)

// serviceErrors maps service sentinels to HTTP status and API code.
var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrAccountInactive, http.StatusUnauthorized, response.ErrAccountInactive},
	{service.ErrTokenRevoked, http.StatusUnauthorized, response.ErrTokenRevoked},
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrUserNotFound, http.StatusBadRequest, response.ErrUserNotFound},
	{service.ErrEmailTaken, http.StatusBadRequest, response.ErrEmailTaken},

	{service.ErrSlugTaken, http.StatusConflict, response.ErrConflict},
	{service.ErrDependencyExists, http.StatusConflict, response.ErrDependencyExists},
	{service.ErrCourseNotFound, http.StatusNotFound, response.ErrCourseNotFound},
	{service.ErrNegativePrice, http.StatusBadRequest, response.ErrValidation},
	{service.ErrLessonNotInCourse, http.StatusNotFound, response.ErrLessonNotInCourse},
	{service.ErrAlreadyEnrolled, http.StatusBadRequest, response.ErrAlreadyEnrolled},
	{service.ErrPaymentRequired, http.StatusPaymentRequired, response.ErrPaymentRequired},

	{service.ErrAssessmentNotFound, http.StatusNotFound, response.ErrAssessmentNotFound},
	{service.ErrInvalidParent, http.StatusBadRequest, response.ErrValidation},
	{service.ErrInvalidResponse, http.StatusBadRequest, response.ErrInvalidResponse},
	{service.ErrMaxAttemptsReached, http.StatusForbidden, response.ErrMaxAttemptsReached},

	{service.ErrPaymentNotFound, http.StatusNotFound, response.ErrPaymentNotFound},
	{service.ErrValidEmailRequired, http.StatusBadRequest, response.ErrValidEmailRequired},
	{service.ErrMissingTxRef, http.StatusBadRequest, response.ErrMissingTxRef},
	{service.ErrInvalidTxRef, http.StatusBadRequest, response.ErrInvalidTxRef},
	{service.ErrDuplicateTxRef, http.StatusBadRequest, response.ErrDuplicateTxRef},
	{service.ErrGatewayUnavailable, http.StatusServiceUnavailable, response.ErrGatewayUnavailable},
	{service.ErrGatewayMisconfigured, http.StatusInternalServerError, response.ErrGatewayMisconfigured},
	{service.ErrInvalidSignature, http.StatusUnauthorized, response.ErrInvalidWebhook},

	{service.ErrUnsupportedFileType, http.StatusBadRequest, response.ErrUnsupportedFile},
	{service.ErrFileTooLarge, http.StatusBadRequest, response.ErrFileTooLarge},

	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
}

// fail renders a service error. Unknown errors are logged and become 500.
func fail(c *gin.Context, err error, msg string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			response.Fail(c, m.status, m.code)
			return
		}
	}
	response.InternalError(c, err, msg)
}

// paramID parses a positive int64 path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// principal returns the authenticated caller. Routes using it sit behind
// RequireJWT, so a missing principal answers 401.
func principal(c *gin.Context) (service.Principal, bool) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return service.Principal{}, false
	}
	return *p, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/elearning-backend/internal/middleware"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
	"github.com/stemsi/elearning-backend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	env := decode(t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

// asUser puts claims on the context the way RequireJWT does.
func asUser(id int64, staff bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: id, Email: "ana@example.com", IsStaff: staff})
		c.Next()
	}
}

func newRequest(method, target, contentType, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func serveRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func do(r *gin.Engine, method, target, contentType, body string) *httptest.ResponseRecorder {
	return serveRequest(r, newRequest(method, target, contentType, body))
}

// ─── Error mapping ──────────────────────────────────────────────────────

func TestFail_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{service.ErrCourseNotFound, http.StatusNotFound, response.ErrCourseNotFound},
		{fmt.Errorf("enroll: %w", service.ErrAlreadyEnrolled), http.StatusBadRequest, response.ErrAlreadyEnrolled},
		{service.ErrPaymentRequired, http.StatusPaymentRequired, response.ErrPaymentRequired},
		{fmt.Errorf("%w: timeout", service.ErrGatewayUnavailable), http.StatusServiceUnavailable, response.ErrGatewayUnavailable},
		{service.ErrDuplicateTxRef, http.StatusBadRequest, response.ErrDuplicateTxRef},
		{service.ErrInvalidSignature, http.StatusUnauthorized, response.ErrInvalidWebhook},
		{fmt.Errorf("%w: q 3", service.ErrInvalidResponse), http.StatusBadRequest, response.ErrInvalidResponse},
		{service.ErrDependencyExists, http.StatusConflict, response.ErrDependencyExists},
		{errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { fail(c, tt.err, "failed") })

			w := do(r, http.MethodGet, "/", "", "")
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errCode(t, w))
		})
	}
}

func TestFail_DoesNotLeakErrorText(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { fail(c, errors.New("pq: password authentication failed"), "failed") })

	w := do(r, http.MethodGet, "/", "", "")
	assert.NotContains(t, w.Body.String(), "password authentication")
}

func TestParamID_RejectsNonPositive(t *testing.T) {
	r := gin.New()
	r.GET("/:id", func(c *gin.Context) {
		if id, ok := paramID(c, "id"); ok {
			c.String(http.StatusOK, "%d", id)
		}
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/12", "", "").Code)
	for _, raw := range []string{"0", "-3", "abc"} {
		w := do(r, http.MethodGet, "/"+raw, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		assert.Equal(t, response.ErrInvalidID, errCode(t, w))
	}
}

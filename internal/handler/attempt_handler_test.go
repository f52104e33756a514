package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
	"github.com/stemsi/elearning-backend/internal/service"
)

type stubAttempts struct {
	result *model.AttemptResult
	err    error
	got    model.CreateAttemptRequest
}

func (s *stubAttempts) Submit(_ context.Context, _ service.Principal, req model.CreateAttemptRequest) (*model.AttemptResult, error) {
	s.got = req
	return s.result, s.err
}

func (s *stubAttempts) List(context.Context, service.Principal) ([]model.UserAttempt, error) {
	return []model.UserAttempt{}, s.err
}

func (s *stubAttempts) Get(context.Context, service.Principal, int64) (*model.UserAttempt, error) {
	return nil, s.err
}

func attemptRouter(svc *stubAttempts) *gin.Engine {
	h := NewAttemptHandler(svc)
	r := gin.New()
	g := r.Group("/", asUser(7, false))
	g.POST("/user-attempts/", h.Submit)
	g.GET("/user-attempts/", h.List)
	g.GET("/user-attempts/:id/", h.Get)
	return r
}

func TestSubmitAttempt(t *testing.T) {
	svc := &stubAttempts{result: &model.AttemptResult{
		UserAttempt:   model.UserAttempt{ID: 3, AssessmentID: 5, Score: 2, Passed: true, Responses: []model.UserResponse{}},
		Percentage:    100,
		TotalPossible: 2,
		AttemptsUsed:  1,
		MaxAttempts:   3,
	}}
	body := `{"assessment": 5, "responses": [{"question": 1, "chosen_choice": 2}, {"question": 2, "text_response": "go"}]}`

	w := do(attemptRouter(svc), http.MethodPost, "/user-attempts/", gin.MIMEJSON, body)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, svc.got.Responses, 2)
	assert.Equal(t, int64(2), *svc.got.Responses[0].ChosenChoiceID)
	assert.Equal(t, "go", *svc.got.Responses[1].TextResponse)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out))
	for _, key := range []string{"id", "assessment", "responses", "score", "passed", "percentage", "total_possible", "attempts_used", "max_attempts"} {
		assert.Contains(t, out, key)
	}
}

func TestSubmitAttempt_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"foreign choice", fmt.Errorf("%w: choice 9", service.ErrInvalidResponse), http.StatusBadRequest, response.ErrInvalidResponse},
		{"max attempts", service.ErrMaxAttemptsReached, http.StatusForbidden, response.ErrMaxAttemptsReached},
		{"not enrolled", service.ErrAssessmentNotFound, http.StatusNotFound, response.ErrAssessmentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(attemptRouter(&stubAttempts{err: tt.err}), http.MethodPost, "/user-attempts/", gin.MIMEJSON, `{"assessment": 5, "responses": []}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errCode(t, w))
		})
	}
}

func TestSubmitAttempt_QuestionRequired(t *testing.T) {
	w := do(attemptRouter(&stubAttempts{}), http.MethodPost, "/user-attempts/", gin.MIMEJSON, `{"assessment": 5, "responses": [{"chosen_choice": 2}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, errCode(t, w))
}

func TestGetAttempt_NotOwned(t *testing.T) {
	w := do(attemptRouter(&stubAttempts{err: service.ErrNotFound}), http.MethodGet, "/user-attempts/3/", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

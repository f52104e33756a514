package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/grading"
	"github.com/stemsi/elearning-backend/internal/model"
)

// AttemptService validates, grades and stores assessment attempts.
type AttemptService struct {
	assessments AssessmentStore
	questions   QuestionStore
	enrollments EnrollmentStore
	attempts    AttemptStore
	// enforceMaxAttempts rejects submissions once max_attempts is used up.
	enforceMaxAttempts bool
	log                zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	assessments AssessmentStore,
	questions QuestionStore,
	enrollments EnrollmentStore,
	attempts AttemptStore,
	enforceMaxAttempts bool,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		assessments:        assessments,
		questions:          questions,
		enrollments:        enrollments,
		attempts:           attempts,
		enforceMaxAttempts: enforceMaxAttempts,
		log:                log.With().Str("component", "attempts").Logger(),
	}
}

// Submit grades the responses and stores the attempt with its responses in
// one transaction. The score is never recomputed afterwards.
func (s *AttemptService) Submit(ctx context.Context, p Principal, req model.CreateAttemptRequest) (*model.AttemptResult, error) {
	a, err := visibleAssessment(ctx, s.assessments, s.enrollments, p, req.AssessmentID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questions.ListByAssessment(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if err := grading.Validate(questions, req.Responses); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	used, err := s.attempts.CountByUserAndAssessment(ctx, p.UserID, a.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if s.enforceMaxAttempts && used >= a.MaxAttempts {
		return nil, ErrMaxAttemptsReached
	}

	result := grading.Grade(questions, req.Responses, a.PassingScore)

	attempt := &model.UserAttempt{
		UserID:       p.UserID,
		AssessmentID: a.ID,
		EndTime:      req.EndTime,
		Score:        result.Score,
		Passed:       result.Passed,
	}
	if err := s.attempts.Create(ctx, attempt, req.Responses); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	if attempt.Responses == nil {
		attempt.Responses = []model.UserResponse{}
	}

	s.log.Info().
		Int64("user_id", p.UserID).
		Int64("assessment_id", a.ID).
		Int64("attempt_id", attempt.ID).
		Int("score", result.Score).
		Int("total", result.TotalPossible).
		Bool("passed", result.Passed).
		Msg("Attempt graded")

	return &model.AttemptResult{
		UserAttempt:   *attempt,
		Percentage:    result.Percentage,
		TotalPossible: result.TotalPossible,
		AttemptsUsed:  used + 1,
		MaxAttempts:   a.MaxAttempts,
	}, nil
}

// List returns the principal's attempts, newest first.
func (s *AttemptService) List(ctx context.Context, p Principal) ([]model.UserAttempt, error) {
	attempts, err := s.attempts.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []model.UserAttempt{}
	}
	return attempts, nil
}

// Get returns one of the principal's attempts with its responses.
func (s *AttemptService) Get(ctx context.Context, p Principal, id int64) (*model.UserAttempt, error) {
	a, err := s.attempts.GetForUser(ctx, p.UserID, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return a, nil
}

package service

import (
	"context"
	"fmt"

	"github.com/stemsi/elearning-backend/internal/database"
	"github.com/stemsi/elearning-backend/internal/model"
)

// AssessmentService handles assessments, their questions and choices.
type AssessmentService struct {
	assessments AssessmentStore
	questions   QuestionStore
	enrollments EnrollmentStore
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(assessments AssessmentStore, questions QuestionStore, enrollments EnrollmentStore) *AssessmentService {
	return &AssessmentService{
		assessments: assessments,
		questions:   questions,
		enrollments: enrollments,
	}
}

// List returns the assessments visible to the principal: everything for
// staff, otherwise those of courses the principal is enrolled in.
func (s *AssessmentService) List(ctx context.Context, p Principal, f model.AssessmentListFilter) ([]model.Assessment, error) {
	userID := p.UserID
	if p.IsStaff {
		userID = 0
	}
	list, err := s.assessments.List(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	if list == nil {
		list = []model.Assessment{}
	}
	return list, nil
}

// visibleAssessment loads an assessment the principal may see. Students only
// see assessments of courses they are enrolled in.
func visibleAssessment(ctx context.Context, assessments AssessmentStore, enrollments EnrollmentStore, p Principal, id int64) (*model.Assessment, error) {
	a, err := assessments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAssessmentNotFound)
	}
	if p.IsStaff {
		return a, nil
	}
	enrolled, err := enrollments.Exists(ctx, p.UserID, a.OwnerCourseID)
	if err != nil {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrAssessmentNotFound
	}
	return a, nil
}

// StudentView returns an assessment with its questions, without the answer key.
func (s *AssessmentService) StudentView(ctx context.Context, p Principal, id int64) (*model.AssessmentStudentView, error) {
	a, err := visibleAssessment(ctx, s.assessments, s.enrollments, p, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByAssessment(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	view := model.NewAssessmentStudentView(a, questions)
	return &view, nil
}

// StaffView returns an assessment with its questions and the answer key.
func (s *AssessmentService) StaffView(ctx context.Context, id int64) (*model.AssessmentStaffView, error) {
	a, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAssessmentNotFound)
	}
	questions, err := s.questions.ListByAssessment(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return &model.AssessmentStaffView{Assessment: *a, Questions: questions}, nil
}

// assessmentFromRequest builds an assessment from the request, applying defaults.
func assessmentFromRequest(req model.AssessmentRequest) (*model.Assessment, error) {
	parents := 0
	for _, id := range []*int64{req.CourseID, req.ModuleID, req.LessonID} {
		if id != nil {
			parents++
		}
	}
	if parents != 1 {
		return nil, ErrInvalidParent
	}

	a := &model.Assessment{
		Title:        req.Title,
		Type:         model.AssessmentType(req.Type),
		CourseID:     req.CourseID,
		ModuleID:     req.ModuleID,
		LessonID:     req.LessonID,
		PassingScore: model.DefaultPassingScore,
		MaxAttempts:  model.DefaultMaxAttempts,
		Duration:     req.Duration,
	}
	if req.PassingScore != nil {
		a.PassingScore = *req.PassingScore
	}
	if req.MaxAttempts != nil {
		a.MaxAttempts = *req.MaxAttempts
	}
	return a, nil
}

// Create adds an assessment attached to exactly one course, module or lesson.
func (s *AssessmentService) Create(ctx context.Context, req model.AssessmentRequest) (*model.Assessment, error) {
	a, err := assessmentFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.assessments.Create(ctx, a); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	return a, nil
}

// Update replaces an assessment's editable fields.
func (s *AssessmentService) Update(ctx context.Context, id int64, req model.AssessmentRequest) (*model.Assessment, error) {
	a, err := assessmentFromRequest(req)
	if err != nil {
		return nil, err
	}
	a.ID = id
	if err := s.assessments.Update(ctx, a); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, notFound(err, ErrAssessmentNotFound)
	}
	return a, nil
}

// Delete removes an assessment with its questions and attempts.
func (s *AssessmentService) Delete(ctx context.Context, id int64) error {
	return notFound(s.assessments.Delete(ctx, id), ErrAssessmentNotFound)
}

// ─── Questions ──────────────────────────────────────────────────────────

// ListQuestions returns an assessment's questions with their choices.
func (s *AssessmentService) ListQuestions(ctx context.Context, assessmentID int64) ([]model.Question, error) {
	if _, err := s.assessments.GetByID(ctx, assessmentID); err != nil {
		return nil, notFound(err, ErrAssessmentNotFound)
	}
	questions, err := s.questions.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

func questionFromRequest(req model.QuestionRequest) *model.Question {
	q := &model.Question{
		Text:    req.Text,
		Type:    model.QuestionType(req.Type),
		Marks:   model.DefaultQuestionMark,
		Order:   req.Order,
		Choices: []model.Choice{},
	}
	if req.Marks != nil {
		q.Marks = *req.Marks
	}
	return q
}

// AddQuestion appends a question to an assessment.
func (s *AssessmentService) AddQuestion(ctx context.Context, assessmentID int64, req model.QuestionRequest) (*model.Question, error) {
	if _, err := s.assessments.GetByID(ctx, assessmentID); err != nil {
		return nil, notFound(err, ErrAssessmentNotFound)
	}
	q := questionFromRequest(req)
	q.AssessmentID = assessmentID
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// UpdateQuestion replaces a question's editable fields.
func (s *AssessmentService) UpdateQuestion(ctx context.Context, id int64, req model.QuestionRequest) (*model.Question, error) {
	q := questionFromRequest(req)
	q.ID = id
	if err := s.questions.UpdateQuestion(ctx, q); err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	choices, err := s.questions.ListChoices(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list choices: %w", err)
	}
	if choices != nil {
		q.Choices = choices
	}
	return q, nil
}

// DeleteQuestion removes a question and its choices.
func (s *AssessmentService) DeleteQuestion(ctx context.Context, id int64) error {
	return notFound(s.questions.DeleteQuestion(ctx, id), ErrNotFound)
}

// ─── Choices ────────────────────────────────────────────────────────────

// ListChoices returns a question's choices.
func (s *AssessmentService) ListChoices(ctx context.Context, questionID int64) ([]model.Choice, error) {
	if _, err := s.questions.GetQuestion(ctx, questionID); err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	choices, err := s.questions.ListChoices(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("list choices: %w", err)
	}
	if choices == nil {
		choices = []model.Choice{}
	}
	return choices, nil
}

// AddChoice appends a choice to a question.
func (s *AssessmentService) AddChoice(ctx context.Context, questionID int64, req model.ChoiceRequest) (*model.Choice, error) {
	if _, err := s.questions.GetQuestion(ctx, questionID); err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	ch := &model.Choice{QuestionID: questionID, Text: req.Text, IsCorrect: req.IsCorrect}
	if err := s.questions.CreateChoice(ctx, ch); err != nil {
		return nil, fmt.Errorf("create choice: %w", err)
	}
	return ch, nil
}

// UpdateChoice replaces a choice's text and correctness.
func (s *AssessmentService) UpdateChoice(ctx context.Context, id int64, req model.ChoiceRequest) (*model.Choice, error) {
	ch := &model.Choice{ID: id, Text: req.Text, IsCorrect: req.IsCorrect}
	if err := s.questions.UpdateChoice(ctx, ch); err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return ch, nil
}

// DeleteChoice removes a choice.
func (s *AssessmentService) DeleteChoice(ctx context.Context, id int64) error {
	return notFound(s.questions.DeleteChoice(ctx, id), ErrNotFound)
}

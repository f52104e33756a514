package model

import "time"

// AssessmentType enumerates the kinds of assessment.
type AssessmentType string

const (
	AssessmentTypeQuiz      AssessmentType = "quiz"
	AssessmentTypeMidExam   AssessmentType = "mid-exam"
	AssessmentTypeFinalExam AssessmentType = "final-exam"
)

// QuestionType enumerates the question kinds. Only choice-based questions
// can contribute to a score.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MCQ"
	QuestionTypeTrueFalse      QuestionType = "TF"
	QuestionTypeShortAnswer    QuestionType = "SA"
	QuestionTypeEssay          QuestionType = "ES"
)

const (
	DefaultPassingScore = 70
	DefaultMaxAttempts  = 1
	DefaultQuestionMark = 1
)

// Assessment is attached to exactly one of a course, a module or a lesson.
type Assessment struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Type         AssessmentType `json:"assessment_type"`
	CourseID     *int64         `json:"course_id"`
	ModuleID     *int64         `json:"module_id"`
	LessonID     *int64         `json:"lesson_id"`
	PassingScore int            `json:"passing_score"`
	MaxAttempts  int            `json:"max_attempts"`
	Duration     int            `json:"duration"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// OwnerCourseID is the course the assessment belongs to, resolved
	// through its module or lesson when not attached directly.
	OwnerCourseID int64 `json:"-"`
}

// Question belongs to one assessment and is listed by Order.
type Question struct {
	ID           int64        `json:"id"`
	AssessmentID int64        `json:"assessment_id"`
	Text         string       `json:"text"`
	Type         QuestionType `json:"question_type"`
	Marks        int          `json:"marks"`
	Order        int          `json:"order"`
	Choices      []Choice     `json:"choices"`
}

// Choice is a candidate answer to a question.
type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

// ─── Views ──────────────────────────────────────────────────────────────

// ChoiceForStudent hides the answer key.
type ChoiceForStudent struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID      int64              `json:"id"`
	Text    string             `json:"text"`
	Type    QuestionType       `json:"question_type"`
	Marks   int                `json:"marks"`
	Order   int                `json:"order"`
	Choices []ChoiceForStudent `json:"choices"`
}

// AssessmentStudentView is the assessment as shown to enrolled students.
type AssessmentStudentView struct {
	Assessment
	Questions []QuestionForStudent `json:"questions"`
}

// AssessmentStaffView includes the answer key.
type AssessmentStaffView struct {
	Assessment
	Questions []Question `json:"questions"`
}

// NewAssessmentStudentView strips is_correct from every choice.
func NewAssessmentStudentView(a *Assessment, questions []Question) AssessmentStudentView {
	view := AssessmentStudentView{
		Assessment: *a,
		Questions:  make([]QuestionForStudent, 0, len(questions)),
	}
	for _, q := range questions {
		sq := QuestionForStudent{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Marks:   q.Marks,
			Order:   q.Order,
			Choices: make([]ChoiceForStudent, 0, len(q.Choices)),
		}
		for _, ch := range q.Choices {
			sq.Choices = append(sq.Choices, ChoiceForStudent{ID: ch.ID, Text: ch.Text})
		}
		view.Questions = append(view.Questions, sq)
	}
	return view
}

// ─── Requests ───────────────────────────────────────────────────────────

// AssessmentRequest is the payload for creating or updating an assessment.
type AssessmentRequest struct {
	Title        string `json:"title" binding:"required,min=1,max=255"`
	Type         string `json:"assessment_type" binding:"required,oneof=quiz mid-exam final-exam"`
	CourseID     *int64 `json:"course_id" binding:"omitempty,min=1"`
	ModuleID     *int64 `json:"module_id" binding:"omitempty,min=1"`
	LessonID     *int64 `json:"lesson_id" binding:"omitempty,min=1"`
	PassingScore *int   `json:"passing_score" binding:"omitempty,min=0,max=100"`
	MaxAttempts  *int   `json:"max_attempts" binding:"omitempty,min=1"`
	Duration     int    `json:"duration" binding:"min=0"`
}

// QuestionRequest is the payload for adding or updating a question.
type QuestionRequest struct {
	Text  string `json:"text" binding:"required,min=1,max=5000"`
	Type  string `json:"question_type" binding:"required,oneof=MCQ TF SA ES"`
	Marks *int   `json:"marks" binding:"omitempty,min=0"`
	Order int    `json:"order" binding:"min=0"`
}

// ChoiceRequest is the payload for adding or updating a choice.
type ChoiceRequest struct {
	Text      string `json:"text" binding:"required,min=1,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// AssessmentListFilter carries the optional list filters for assessments.
type AssessmentListFilter struct {
	Type     AssessmentType
	LessonID *int64
}

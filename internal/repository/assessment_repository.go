package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/model"
)

// AssessmentRepository handles assessment data access.
type AssessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(pool *pgxpool.Pool) *AssessmentRepository {
	return &AssessmentRepository{pool: pool}
}

// assessmentSelect resolves the owning course through the module or lesson
// an assessment may be attached to.
const assessmentSelect = `
	SELECT a.id, a.title, a.assessment_type, a.course_id, a.module_id, a.lesson_id,
	       a.passing_score, a.max_attempts, a.duration, a.created_at, a.updated_at,
	       COALESCE(a.course_id, am.course_id, alm.course_id)
	FROM assessments a
	LEFT JOIN modules am ON am.id = a.module_id
	LEFT JOIN lessons al ON al.id = a.lesson_id
	LEFT JOIN modules alm ON alm.id = al.module_id`

func scanAssessment(row pgx.Row) (*model.Assessment, error) {
	a := &model.Assessment{}
	err := row.Scan(&a.ID, &a.Title, &a.Type, &a.CourseID, &a.ModuleID, &a.LessonID,
		&a.PassingScore, &a.MaxAttempts, &a.Duration, &a.CreatedAt, &a.UpdatedAt, &a.OwnerCourseID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns assessments matching the filter. When userID is non-zero only
// assessments of courses the user is enrolled in are returned.
func (r *AssessmentRepository) List(ctx context.Context, userID int64, f model.AssessmentListFilter) ([]model.Assessment, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if userID != 0 {
		args = append(args, userID)
		where += fmt.Sprintf(` AND COALESCE(a.course_id, am.course_id, alm.course_id) IN
			(SELECT course_id FROM enrollments WHERE user_id = $%d)`, len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(" AND a.assessment_type = $%d", len(args))
	}
	if f.LessonID != nil {
		args = append(args, *f.LessonID)
		where += fmt.Sprintf(" AND a.lesson_id = $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, assessmentSelect+where+` ORDER BY a.id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assessments := []model.Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, rows.Err()
}

// GetByID retrieves an assessment with its owning course resolved.
func (r *AssessmentRepository) GetByID(ctx context.Context, id int64) (*model.Assessment, error) {
	return scanAssessment(r.pool.QueryRow(ctx, assessmentSelect+` WHERE a.id = $1`, id))
}

// Create inserts a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, a *model.Assessment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO assessments (title, assessment_type, course_id, module_id, lesson_id,
		                          passing_score, max_attempts, duration)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		a.Title, a.Type, a.CourseID, a.ModuleID, a.LessonID, a.PassingScore, a.MaxAttempts, a.Duration,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// Update modifies an assessment's editable fields.
func (r *AssessmentRepository) Update(ctx context.Context, a *model.Assessment) error {
	return r.pool.QueryRow(ctx,
		`UPDATE assessments
		 SET title = $1, assessment_type = $2, course_id = $3, module_id = $4, lesson_id = $5,
		     passing_score = $6, max_attempts = $7, duration = $8, updated_at = NOW()
		 WHERE id = $9
		 RETURNING created_at, updated_at`,
		a.Title, a.Type, a.CourseID, a.ModuleID, a.LessonID, a.PassingScore, a.MaxAttempts, a.Duration, a.ID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// Delete removes an assessment together with its questions and attempts.
func (r *AssessmentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

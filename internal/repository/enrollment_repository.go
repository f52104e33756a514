package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/model"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnrollmentRepository handles enrollment and lesson progress data access.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// getOrCreateEnrollment inserts the (user, course) pair unless it exists and
// returns the stored row. created is false when the row already existed.
func getOrCreateEnrollment(ctx context.Context, q dbtx, userID, courseID int64) (*model.Enrollment, bool, error) {
	e := &model.Enrollment{UserID: userID, CourseID: courseID}
	err := q.QueryRow(ctx,
		`INSERT INTO enrollments (user_id, course_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, course_id) DO NOTHING
		 RETURNING id, enrolled_on`,
		userID, courseID,
	).Scan(&e.ID, &e.EnrolledOn)
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	err = q.QueryRow(ctx,
		`SELECT id, enrolled_on FROM enrollments WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	).Scan(&e.ID, &e.EnrolledOn)
	if err != nil {
		return nil, false, err
	}
	return e, false, nil
}

// GetOrCreate returns the user's enrollment in the course, creating it if needed.
func (r *EnrollmentRepository) GetOrCreate(ctx context.Context, userID, courseID int64) (*model.Enrollment, bool, error) {
	return getOrCreateEnrollment(ctx, r.pool, userID, courseID)
}

// Exists reports whether the user is enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`,
		userID, courseID,
	).Scan(&exists)
	return exists, err
}

// ListByUser returns the user's enrollments with course summaries, newest first.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID int64) ([]model.EnrollmentView, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.enrolled_on,
		        c.id, c.title, c.description, c.price, c.thumbnail_url, c.created_at,
		        cat.id, cat.name, cat.slug,
		        COALESCE((SELECT AVG(rr.rating) FROM review_ratings rr
		                  WHERE rr.course_id = c.id AND rr.status), 0)::float8,
		        (SELECT COUNT(*) FROM enrollments e2 WHERE e2.course_id = c.id)::int
		 FROM enrollments e
		 JOIN courses c ON c.id = e.course_id
		 LEFT JOIN categories cat ON cat.id = c.category_id
		 WHERE e.user_id = $1
		 ORDER BY e.enrolled_on DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []model.EnrollmentView{}
	for rows.Next() {
		var (
			v       model.EnrollmentView
			catID   *int64
			catName *string
			catSlug *string
		)
		s := &v.Course
		if err := rows.Scan(&v.ID, &v.EnrolledOn,
			&s.ID, &s.Title, &s.Description, &s.Price, &s.ThumbnailURL, &s.CreatedAt,
			&catID, &catName, &catSlug, &s.AverageRating, &s.EnrollmentsCount); err != nil {
			return nil, err
		}
		if catID != nil {
			s.Category = &model.Category{ID: *catID, Name: *catName, Slug: *catSlug}
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ─── Progress ───────────────────────────────────────────────────────────

const progressColumns = `id, user_id, course_id, module_id, lesson_id, completed, completed_at`

func scanProgress(row pgx.Row) (*model.UserProgress, error) {
	p := &model.UserProgress{}
	err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.ModuleID, &p.LessonID, &p.Completed, &p.CompletedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *EnrollmentRepository) listProgress(ctx context.Context, sql string, args ...any) ([]model.UserProgress, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	progress := []model.UserProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		progress = append(progress, *p)
	}
	return progress, rows.Err()
}

// ToggleProgress creates the progress row as completed, or flips it when it
// already exists, in a single statement.
func (r *EnrollmentRepository) ToggleProgress(ctx context.Context, userID, courseID, moduleID, lessonID int64) (*model.UserProgress, error) {
	return scanProgress(r.pool.QueryRow(ctx,
		`INSERT INTO user_progress (user_id, course_id, module_id, lesson_id, completed, completed_at)
		 VALUES ($1, $2, $3, $4, TRUE, NOW())
		 ON CONFLICT (user_id, lesson_id) DO UPDATE
		 SET completed = NOT user_progress.completed,
		     completed_at = CASE WHEN user_progress.completed THEN NULL ELSE NOW() END
		 RETURNING `+progressColumns,
		userID, courseID, moduleID, lessonID))
}

// UpsertProgress sets the completion flag, creating the row if needed.
// created reports whether a new row was inserted.
func (r *EnrollmentRepository) UpsertProgress(ctx context.Context, userID, courseID, moduleID, lessonID int64, completed bool) (*model.UserProgress, bool, error) {
	var completedAt *time.Time
	if completed {
		now := time.Now()
		completedAt = &now
	}

	p := &model.UserProgress{}
	var inserted bool
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_progress (user_id, course_id, module_id, lesson_id, completed, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE
		 SET completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at
		 RETURNING `+progressColumns+`, (xmax = 0)`,
		userID, courseID, moduleID, lessonID, completed, completedAt,
	).Scan(&p.ID, &p.UserID, &p.CourseID, &p.ModuleID, &p.LessonID, &p.Completed, &p.CompletedAt, &inserted)
	if err != nil {
		return nil, false, err
	}
	return p, inserted, nil
}

// ToggleProgressByID flips an existing progress row owned by the user.
func (r *EnrollmentRepository) ToggleProgressByID(ctx context.Context, userID, id int64) (*model.UserProgress, error) {
	return scanProgress(r.pool.QueryRow(ctx,
		`UPDATE user_progress
		 SET completed = NOT completed,
		     completed_at = CASE WHEN completed THEN NULL ELSE NOW() END
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+progressColumns,
		id, userID))
}

// ListProgressByCourse returns the user's progress rows within a course.
func (r *EnrollmentRepository) ListProgressByCourse(ctx context.Context, userID, courseID int64) ([]model.UserProgress, error) {
	return r.listProgress(ctx,
		`SELECT `+progressColumns+` FROM user_progress
		 WHERE user_id = $1 AND course_id = $2 ORDER BY id ASC`, userID, courseID)
}

// ListProgressByUser returns all of the user's progress rows.
func (r *EnrollmentRepository) ListProgressByUser(ctx context.Context, userID int64) ([]model.UserProgress, error) {
	return r.listProgress(ctx,
		`SELECT `+progressColumns+` FROM user_progress
		 WHERE user_id = $1 ORDER BY course_id ASC, id ASC`, userID)
}

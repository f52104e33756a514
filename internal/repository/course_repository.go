package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/model"
)

// CourseRepository handles course data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// summarySelect renders a course with its category, average rating and
// enrollment count.
const summarySelect = `
	SELECT c.id, c.title, c.description, c.price, c.thumbnail_url, c.created_at,
	       cat.id, cat.name, cat.slug,
	       COALESCE((SELECT AVG(rr.rating) FROM review_ratings rr
	                 WHERE rr.course_id = c.id AND rr.status), 0)::float8,
	       (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id)::int
	FROM courses c
	LEFT JOIN categories cat ON cat.id = c.category_id`

func scanSummary(row pgx.Row) (*model.CourseSummary, error) {
	s := &model.CourseSummary{}
	var (
		catID   *int64
		catName *string
		catSlug *string
	)
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Price, &s.ThumbnailURL, &s.CreatedAt,
		&catID, &catName, &catSlug, &s.AverageRating, &s.EnrollmentsCount)
	if err != nil {
		return nil, err
	}
	if catID != nil {
		s.Category = &model.Category{ID: *catID, Name: *catName, Slug: *catSlug}
	}
	return s, nil
}

// List returns a page of course summaries matching the filter and the total count.
func (r *CourseRepository) List(ctx context.Context, f model.CourseListFilter, limit, offset int) ([]model.CourseSummary, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if f.Search != "" {
		args = append(args, f.Search)
		where += fmt.Sprintf(" AND (c.title ILIKE '%%' || $%d || '%%' OR c.description ILIKE '%%' || $%d || '%%')", len(args), len(args))
	}
	if f.CategorySlug != "" {
		args = append(args, f.CategorySlug)
		where += fmt.Sprintf(" AND cat.slug = $%d", len(args))
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM courses c LEFT JOIN categories cat ON cat.id = c.category_id`+where,
		args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := summarySelect + where +
		fmt.Sprintf(" ORDER BY c.created_at DESC, c.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	courses := []model.CourseSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		courses = append(courses, *s)
	}
	return courses, total, rows.Err()
}

// GetSummary retrieves the summary view of one course.
func (r *CourseRepository) GetSummary(ctx context.Context, id int64) (*model.CourseSummary, error) {
	return scanSummary(r.pool.QueryRow(ctx, summarySelect+` WHERE c.id = $1`, id))
}

// GetByID retrieves a course row.
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, category_id, price, thumbnail_url, created_at, updated_at
		 FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.CategoryID, &c.Price, &c.ThumbnailURL, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (title, description, category_id, price)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		c.Title, c.Description, c.CategoryID, c.Price,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// Update modifies a course's editable fields.
func (r *CourseRepository) Update(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`UPDATE courses
		 SET title = $1, description = $2, category_id = $3, price = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING thumbnail_url, created_at, updated_at`,
		c.Title, c.Description, c.CategoryID, c.Price, c.ID,
	).Scan(&c.ThumbnailURL, &c.CreatedAt, &c.UpdatedAt)
}

// SetThumbnail stores the public URL of a course thumbnail.
func (r *CourseRepository) SetThumbnail(ctx context.Context, id int64, url string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE courses SET thumbnail_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a course and, by cascade, its modules, lessons and enrollments.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

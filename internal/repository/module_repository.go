package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/model"
)

// ModuleRepository handles module and lesson data access.
type ModuleRepository struct {
	pool *pgxpool.Pool
}

// NewModuleRepository creates a new ModuleRepository.
func NewModuleRepository(pool *pgxpool.Pool) *ModuleRepository {
	return &ModuleRepository{pool: pool}
}

// ─── Modules ────────────────────────────────────────────────────────────

// ListByCourse returns a course's modules in display order.
func (r *ModuleRepository) ListByCourse(ctx context.Context, courseID int64) ([]model.Module, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, title, description, sort_order
		 FROM modules WHERE course_id = $1
		 ORDER BY sort_order ASC, id ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	modules := []model.Module{}
	for rows.Next() {
		var m model.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.Order); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// GetModule retrieves a module by ID.
func (r *ModuleRepository) GetModule(ctx context.Context, id int64) (*model.Module, error) {
	m := &model.Module{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, title, description, sort_order FROM modules WHERE id = $1`, id,
	).Scan(&m.ID, &m.CourseID, &m.Title, &m.Description, &m.Order)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreateModule inserts a module.
func (r *ModuleRepository) CreateModule(ctx context.Context, m *model.Module) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO modules (course_id, title, description, sort_order)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		m.CourseID, m.Title, m.Description, m.Order,
	).Scan(&m.ID)
}

// UpdateModule modifies a module's editable fields.
func (r *ModuleRepository) UpdateModule(ctx context.Context, m *model.Module) error {
	return r.pool.QueryRow(ctx,
		`UPDATE modules SET title = $1, description = $2, sort_order = $3
		 WHERE id = $4 RETURNING course_id`,
		m.Title, m.Description, m.Order, m.ID,
	).Scan(&m.CourseID)
}

// DeleteModule removes a module and returns the course it belonged to.
func (r *ModuleRepository) DeleteModule(ctx context.Context, id int64) (int64, error) {
	var courseID int64
	err := r.pool.QueryRow(ctx,
		`DELETE FROM modules WHERE id = $1 RETURNING course_id`, id,
	).Scan(&courseID)
	return courseID, err
}

// ─── Lessons ────────────────────────────────────────────────────────────

const lessonColumns = `l.id, l.module_id, l.title, l.content, l.youtube_url, l.resources_url, l.sort_order`

func scanLesson(row pgx.Row) (*model.Lesson, error) {
	l := &model.Lesson{}
	err := row.Scan(&l.ID, &l.ModuleID, &l.Title, &l.Content, &l.YoutubeURL, &l.ResourcesURL, &l.Order)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func collectLessons(rows pgx.Rows) ([]model.Lesson, error) {
	defer rows.Close()
	lessons := []model.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, *l)
	}
	return lessons, rows.Err()
}

// ListLessons returns a module's lessons in display order.
func (r *ModuleRepository) ListLessons(ctx context.Context, moduleID int64) ([]model.Lesson, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lessonColumns+` FROM lessons l
		 WHERE l.module_id = $1
		 ORDER BY l.sort_order ASC, l.id ASC`, moduleID)
	if err != nil {
		return nil, err
	}
	return collectLessons(rows)
}

// ListLessonsByCourse returns every lesson of a course ordered by module then lesson.
func (r *ModuleRepository) ListLessonsByCourse(ctx context.Context, courseID int64) ([]model.Lesson, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lessonColumns+` FROM lessons l
		 JOIN modules m ON m.id = l.module_id
		 WHERE m.course_id = $1
		 ORDER BY m.sort_order ASC, m.id ASC, l.sort_order ASC, l.id ASC`, courseID)
	if err != nil {
		return nil, err
	}
	return collectLessons(rows)
}

// GetLesson retrieves a lesson by ID.
func (r *ModuleRepository) GetLesson(ctx context.Context, id int64) (*model.Lesson, error) {
	return scanLesson(r.pool.QueryRow(ctx,
		`SELECT `+lessonColumns+` FROM lessons l WHERE l.id = $1`, id))
}

// GetLessonInCourse retrieves a lesson only if it belongs to the course.
func (r *ModuleRepository) GetLessonInCourse(ctx context.Context, courseID, lessonID int64) (*model.Lesson, error) {
	return scanLesson(r.pool.QueryRow(ctx,
		`SELECT `+lessonColumns+` FROM lessons l
		 JOIN modules m ON m.id = l.module_id
		 WHERE l.id = $1 AND m.course_id = $2`, lessonID, courseID))
}

// CourseIDOfLesson returns the course a lesson belongs to.
func (r *ModuleRepository) CourseIDOfLesson(ctx context.Context, lessonID int64) (int64, error) {
	var courseID int64
	err := r.pool.QueryRow(ctx,
		`SELECT m.course_id FROM lessons l JOIN modules m ON m.id = l.module_id WHERE l.id = $1`,
		lessonID,
	).Scan(&courseID)
	return courseID, err
}

// CreateLesson inserts a lesson.
func (r *ModuleRepository) CreateLesson(ctx context.Context, l *model.Lesson) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO lessons (module_id, title, content, youtube_url, sort_order)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		l.ModuleID, l.Title, l.Content, l.YoutubeURL, l.Order,
	).Scan(&l.ID)
}

// UpdateLesson modifies a lesson's editable fields.
func (r *ModuleRepository) UpdateLesson(ctx context.Context, l *model.Lesson) error {
	return r.pool.QueryRow(ctx,
		`UPDATE lessons SET title = $1, content = $2, youtube_url = $3, sort_order = $4
		 WHERE id = $5 RETURNING module_id, resources_url`,
		l.Title, l.Content, l.YoutubeURL, l.Order, l.ID,
	).Scan(&l.ModuleID, &l.ResourcesURL)
}

// SetLessonResources stores the public URL of a lesson's resource file.
func (r *ModuleRepository) SetLessonResources(ctx context.Context, id int64, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE lessons SET resources_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteLesson removes a lesson and returns its module.
func (r *ModuleRepository) DeleteLesson(ctx context.Context, id int64) (int64, error) {
	var moduleID int64
	err := r.pool.QueryRow(ctx,
		`DELETE FROM lessons WHERE id = $1 RETURNING module_id`, id,
	).Scan(&moduleID)
	return moduleID, err
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/model"
)

// RatingRepository handles course reviews and contact messages.
type RatingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository creates a new RatingRepository.
func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// HasRated reports whether the user already reviewed the course.
func (r *RatingRepository) HasRated(ctx context.Context, userID, courseID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM review_ratings WHERE user_id = $1 AND course_id = $2)`,
		userID, courseID,
	).Scan(&exists)
	return exists, err
}

// Upsert creates or replaces the user's review of a course.
// created reports whether a new row was inserted.
func (r *RatingRepository) Upsert(ctx context.Context, rr *model.ReviewRating) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx,
		`INSERT INTO review_ratings (course_id, user_id, subject, review, rating, ip)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, course_id) DO UPDATE
		 SET subject = EXCLUDED.subject, review = EXCLUDED.review,
		     rating = EXCLUDED.rating, ip = EXCLUDED.ip, updated_at = NOW()
		 RETURNING id, status, created_at, updated_at, (xmax = 0)`,
		rr.CourseID, rr.UserID, rr.Subject, rr.Review, rr.Rating, rr.IP,
	).Scan(&rr.ID, &rr.Status, &rr.CreatedAt, &rr.UpdatedAt, &created)
	return created, err
}

// CreateContact stores a contact form message.
func (r *RatingRepository) CreateContact(ctx context.Context, c *model.Contact) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO contacts (email, subject, message) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		c.Email, c.Subject, c.Message,
	).Scan(&c.ID, &c.CreatedAt)
}

// ListContacts returns a page of contact messages, newest first, and the total count.
func (r *RatingRepository) ListContacts(ctx context.Context, limit, offset int) ([]model.Contact, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, email, subject, message, created_at FROM contacts
		 ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Email, &c.Subject, &c.Message, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		contacts = append(contacts, c)
	}
	return contacts, total, rows.Err()
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/elearning-backend/internal/database"
	"github.com/stemsi/elearning-backend/internal/model"
)

// ErrEmailTaken is returned when a user with the same e-mail exists.
var ErrEmailTaken = errors.New("email already registered")

// UserRepository handles user account data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, email, name, first_name, last_name, password_hash, is_active, is_staff, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*model.UserAccount, error) {
	u := &model.UserAccount{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsActive, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user. E-mails are stored lowercased.
func (r *UserRepository) Create(ctx context.Context, u *model.UserAccount) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, first_name, last_name, password_hash, is_active, is_staff)
		 VALUES (LOWER($1), $2, $3, $4, $5, $6, $7)
		 RETURNING id, email, created_at, updated_at`,
		u.Email, u.Name, u.FirstName, u.LastName, u.PasswordHash, u.IsActive, u.IsStaff,
	).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if database.IsUniqueViolation(err, "") {
		return ErrEmailTaken
	}
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.UserAccount, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by e-mail (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.UserAccount, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email))
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id)
	return err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/repository"
)

// UserService handles registration, login and password resets.
type UserService struct {
	users UserStore
	auth  *AuthService
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, auth *AuthService) *UserService {
	return &UserService{users: users, auth: auth}
}

// Register creates an active, non-staff account.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.UserAccount, error) {
	return s.create(ctx, req, false)
}

// CreateStaff creates an active staff account. Used by the create-superuser
// command.
func (s *UserService) CreateStaff(ctx context.Context, req model.RegisterRequest) (*model.UserAccount, error) {
	return s.create(ctx, req, true)
}

func (s *UserService) create(ctx context.Context, req model.RegisterRequest, staff bool) (*model.UserAccount, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.UserAccount{
		Email:        strings.TrimSpace(req.Email),
		Name:         req.Name,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      staff,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login checks the credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (string, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("get user: %w", err)
	}

	if err := s.auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return "", err
	}
	if !u.IsActive {
		return "", ErrAccountInactive
	}

	return s.auth.GenerateToken(u)
}

// Me returns the principal's account.
func (s *UserService) Me(ctx context.Context, p Principal) (*model.UserAccount, error) {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ResetPassword sets a new password for the account with the given e-mail.
// Staff may reset any account, everyone else only their own.
func (s *UserService) ResetPassword(ctx context.Context, p Principal, req model.ResetPasswordRequest) error {
	if !p.IsStaff && !strings.EqualFold(strings.TrimSpace(req.Email), p.Email) {
		return ErrForbidden
	}

	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}

	hash, err := s.auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

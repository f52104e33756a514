package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/response"
)

// ContactService stores and lists contact form messages.
type ContactService struct {
	store ContactStore
}

// NewContactService creates a new ContactService.
func NewContactService(store ContactStore) *ContactService {
	return &ContactService{store: store}
}

// Create stores a message.
func (s *ContactService) Create(ctx context.Context, req model.ContactRequest) (*model.Contact, error) {
	c := &model.Contact{
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: req.Message,
	}
	if err := s.store.CreateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// List returns a page of messages, newest first.
func (s *ContactService) List(ctx context.Context, page, perPage int) ([]model.Contact, *response.Pagination, error) {
	page, perPage = response.NormalizePage(page, perPage)
	contacts, total, err := s.store.ListContacts(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, response.NewPagination(page, perPage, total), nil
}

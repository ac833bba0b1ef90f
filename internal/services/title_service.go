package services

import (
	"context"
	"fmt"
	"time"

	"yamdb/internal/apperrors"
	"yamdb/internal/models"
	"yamdb/internal/repositories"
	"yamdb/internal/validation"
)

// TitleInput is the body of a title creation request.
type TitleInput struct {
	Name        string `json:"name" validate:"required,max=256"`
	Year        int    `json:"year" validate:"required"`
	Description string `json:"description"`
}

// TitleService handles business logic related to titles.
type TitleService struct {
	repo      repositories.TitleRepository
	validator *validation.Validator
	now       func() time.Time
}

// NewTitleService creates a new TitleService.
func NewTitleService(repo repositories.TitleRepository, validator *validation.Validator) *TitleService {
	return &TitleService{
		repo:      repo,
		validator: validator,
		now:       time.Now,
	}
}

// GetAllTitles retrieves all titles.
func (s *TitleService) GetAllTitles(ctx context.Context) ([]models.Title, error) {
	return s.repo.GetAll(ctx)
}

// GetTitleByID retrieves a single title by its ID.
func (s *TitleService) GetTitleByID(ctx context.Context, id string) (*models.Title, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateTitle creates a new title. The year may not lie in the future.
func (s *TitleService) CreateTitle(ctx context.Context, in TitleInput) (*models.Title, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if current := s.now().Year(); in.Year > current {
		return nil, apperrors.NewValidationError("year", fmt.Sprintf("year cannot be later than %d", current))
	}

	title := &models.Title{
		Name:        in.Name,
		Year:        in.Year,
		Description: in.Description,
	}
	if err := s.repo.Create(ctx, title); err != nil {
		return nil, err
	}
	return title, nil
}

// DeleteTitle deletes a title by its ID.
func (s *TitleService) DeleteTitle(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

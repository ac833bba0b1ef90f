package repositories

import (
	"context"

	"yamdb/internal/models"
)

// TitleRepository defines the interface for title data access.
type TitleRepository interface {
	GetAll(ctx context.Context) ([]models.Title, error)
	GetByID(ctx context.Context, id string) (*models.Title, error)
	Create(ctx context.Context, title *models.Title) error
	Delete(ctx context.Context, id string) error
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"yamdb/internal/apperrors"
	"yamdb/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTitleRepository is a GORM implementation of TitleRepository.
type GORMTitleRepository struct {
	db *gorm.DB
}

// NewGORMTitleRepository creates a new instance of GORMTitleRepository.
func NewGORMTitleRepository(db *gorm.DB) *GORMTitleRepository {
	return &GORMTitleRepository{
		db: db,
	}
}

// withRating selects titles along with the average score of their reviews.
func (r *GORMTitleRepository) withRating(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Title{}).
		Select("titles.*, CAST(AVG(reviews.score) AS FLOAT) AS rating").
		Joins("LEFT JOIN reviews ON reviews.title_id = titles.id").
		Group("titles.id")
}

// GetAll retrieves all titles with their rating, ordered by name.
func (r *GORMTitleRepository) GetAll(ctx context.Context) ([]models.Title, error) {
	var titles []models.Title
	if err := r.withRating(ctx).Order("titles.name").Find(&titles).Error; err != nil {
		return nil, fmt.Errorf("failed to get all titles: %w", err)
	}
	return titles, nil
}

// GetByID retrieves a single title with its rating.
func (r *GORMTitleRepository) GetByID(ctx context.Context, id string) (*models.Title, error) {
	var title models.Title
	if err := r.withRating(ctx).Where("titles.id = ?", id).Take(&title).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("title with ID %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get title by ID %s: %w", id, err)
	}
	return &title, nil
}

// Create creates a new title in the database.
func (r *GORMTitleRepository) Create(ctx context.Context, title *models.Title) error {
	if title.ID == "" {
		title.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(title).Error; err != nil {
		return fmt.Errorf("failed to create title: %w", err)
	}
	return nil
}

// Delete deletes a title and everything reviewed under it.
func (r *GORMTitleRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := tx.Model(&models.Review{}).Select("id").Where("title_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviews).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments of title %s: %w", id, err)
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews of title %s: %w", id, err)
		}
		res := tx.Delete(&models.Title{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete title: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("title with ID %s: %w", id, apperrors.ErrNotFound)
		}
		return nil
	})
}

package repositories

import (
	"context"

	"yamdb/internal/models"
)

// ReviewRepository defines the interface for review and comment data access.
// Returned reviews and comments have Author preloaded.
type ReviewRepository interface {
	ListReviews(ctx context.Context, titleID string) ([]models.Review, error)
	GetReview(ctx context.Context, titleID, reviewID string) (*models.Review, error)
	CreateReview(ctx context.Context, review *models.Review) error
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, reviewID string) error

	ListComments(ctx context.Context, reviewID string) ([]models.Comment, error)
	GetComment(ctx context.Context, reviewID, commentID string) (*models.Comment, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, commentID string) error
}

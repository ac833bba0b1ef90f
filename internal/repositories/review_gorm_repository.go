package repositories

import (
	"context"
	"errors"
	"fmt"

	"yamdb/internal/apperrors"
	"yamdb/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{
		db: db,
	}
}

// ListReviews returns the reviews of a title, newest first.
func (r *GORMReviewRepository) ListReviews(ctx context.Context, titleID string) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).Preload("Author").
		Where("title_id = ?", titleID).
		Order("pub_date DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews of title %s: %w", titleID, err)
	}
	return reviews, nil
}

// GetReview returns a review only if it belongs to the given title.
func (r *GORMReviewRepository) GetReview(ctx context.Context, titleID, reviewID string) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Preload("Author").
		First(&review, "id = ? AND title_id = ?", reviewID, titleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("review with ID %s: %w", reviewID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get review %s: %w", reviewID, err)
	}
	return &review, nil
}

// CreateReview inserts a review. A second review of the same title by the
// same author fails with apperrors.ErrDuplicateReview.
func (r *GORMReviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateReview
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// UpdateReview writes text and score. Author and pub_date never change.
func (r *GORMReviewRepository) UpdateReview(ctx context.Context, review *models.Review) error {
	res := r.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", review.ID).Updates(map[string]any{
		"text":  review.Text,
		"score": review.Score,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review with ID %s: %w", review.ID, apperrors.ErrNotFound)
	}
	return nil
}

// DeleteReview removes a review and its comments.
func (r *GORMReviewRepository) DeleteReview(ctx context.Context, reviewID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", reviewID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments of review %s: %w", reviewID, err)
		}
		res := tx.Delete(&models.Review{}, "id = ?", reviewID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete review: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("review with ID %s: %w", reviewID, apperrors.ErrNotFound)
		}
		return nil
	})
}

// ListComments returns the comments of a review, newest first.
func (r *GORMReviewRepository) ListComments(ctx context.Context, reviewID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Preload("Author").
		Where("review_id = ?", reviewID).
		Order("pub_date DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of review %s: %w", reviewID, err)
	}
	return comments, nil
}

// GetComment returns a comment only if it belongs to the given review.
func (r *GORMReviewRepository) GetComment(ctx context.Context, reviewID, commentID string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("Author").
		First(&comment, "id = ? AND review_id = ?", commentID, reviewID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("comment with ID %s: %w", commentID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get comment %s: %w", commentID, err)
	}
	return &comment, nil
}

func (r *GORMReviewRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *GORMReviewRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", comment.ID).Update("text", comment.Text)
	if res.Error != nil {
		return fmt.Errorf("failed to update comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment with ID %s: %w", comment.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *GORMReviewRepository) DeleteComment(ctx context.Context, commentID string) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", commentID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment with ID %s: %w", commentID, apperrors.ErrNotFound)
	}
	return nil
}

package services

import (
	"context"
	"strings"
	"time"

	"yamdb/internal/apperrors"
	"yamdb/internal/models"
	"yamdb/internal/permissions"
	"yamdb/internal/repositories"
	"yamdb/internal/validation"
)

const (
	minScore = 1
	maxScore = 10
)

type ReviewInput struct {
	Text  string `json:"text" validate:"required"`
	Score int    `json:"score" validate:"required,min=1,max=10"`
}

type ReviewPatch struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

type CommentInput struct {
	Text string `json:"text" validate:"required"`
}

type CommentPatch struct {
	Text *string `json:"text"`
}

// ReviewService handles reviews of titles and the comments under them.
// Changing or deleting a specific review or comment is subject to the
// AuthorOrStaffOrReadOnly object check.
type ReviewService struct {
	reviews   repositories.ReviewRepository
	titles    repositories.TitleRepository
	evaluator *permissions.Evaluator
	validator *validation.Validator
	now       func() time.Time
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	reviews repositories.ReviewRepository,
	titles repositories.TitleRepository,
	evaluator *permissions.Evaluator,
	validator *validation.Validator,
) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		titles:    titles,
		evaluator: evaluator,
		validator: validator,
		now:       time.Now,
	}
}

// ListReviews returns the reviews of a title, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, titleID string) ([]models.Review, error) {
	if _, err := s.titles.GetByID(ctx, titleID); err != nil {
		return nil, err
	}
	return s.reviews.ListReviews(ctx, titleID)
}

func (s *ReviewService) GetReview(ctx context.Context, req permissions.Request, titleID, reviewID string) (*models.Review, error) {
	review, err := s.reviews.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.evaluator.AllowObject(req, review, permissions.AuthorOrStaffOrReadOnly); err != nil {
		return nil, err
	}
	return review, nil
}

// CreateReview adds the requester's review of a title.
func (s *ReviewService) CreateReview(ctx context.Context, author *models.User, titleID string, in ReviewInput) (*models.Review, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.titles.GetByID(ctx, titleID); err != nil {
		return nil, err
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: author.ID,
		Author:   *author,
		Text:     in.Text,
		Score:    in.Score,
		PubDate:  s.now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, req permissions.Request, titleID, reviewID string, patch ReviewPatch) (*models.Review, error) {
	review, err := s.GetReview(ctx, req, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if patch.Text != nil {
		if strings.TrimSpace(*patch.Text) == "" {
			fields["text"] = "this field may not be blank"
		} else {
			review.Text = *patch.Text
		}
	}
	if patch.Score != nil {
		if *patch.Score < minScore || *patch.Score > maxScore {
			fields["score"] = "score must be between 1 and 10"
		} else {
			review.Score = *patch.Score
		}
	}
	if len(fields) > 0 {
		return nil, &apperrors.ValidationError{Fields: fields}
	}

	if err := s.reviews.UpdateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, req permissions.Request, titleID, reviewID string) error {
	review, err := s.GetReview(ctx, req, titleID, reviewID)
	if err != nil {
		return err
	}
	return s.reviews.DeleteReview(ctx, review.ID)
}

// ListComments returns the comments of a review, newest first.
func (s *ReviewService) ListComments(ctx context.Context, titleID, reviewID string) ([]models.Comment, error) {
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.reviews.ListComments(ctx, reviewID)
}

func (s *ReviewService) GetComment(ctx context.Context, req permissions.Request, titleID, reviewID, commentID string) (*models.Comment, error) {
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.reviews.GetComment(ctx, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.evaluator.AllowObject(req, comment, permissions.AuthorOrStaffOrReadOnly); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *ReviewService) CreateComment(ctx context.Context, author *models.User, titleID, reviewID string, in CommentInput) (*models.Comment, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ReviewID: reviewID,
		AuthorID: author.ID,
		Author:   *author,
		Text:     in.Text,
		PubDate:  s.now().UTC(),
	}
	if err := s.reviews.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *ReviewService) UpdateComment(ctx context.Context, req permissions.Request, titleID, reviewID, commentID string, patch CommentPatch) (*models.Comment, error) {
	comment, err := s.GetComment(ctx, req, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if patch.Text != nil {
		if strings.TrimSpace(*patch.Text) == "" {
			return nil, apperrors.NewValidationError("text", "this field may not be blank")
		}
		comment.Text = *patch.Text
	}
	if err := s.reviews.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *ReviewService) DeleteComment(ctx context.Context, req permissions.Request, titleID, reviewID, commentID string) error {
	comment, err := s.GetComment(ctx, req, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	return s.reviews.DeleteComment(ctx, comment.ID)
}

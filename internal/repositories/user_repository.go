package repositories

import (
	"context"

	"yamdb/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// GetOrCreate returns the user matching the exact (username, email) pair,
	// creating it when absent. If either value belongs to a different user it
	// fails with apperrors.ErrConflict.
	GetOrCreate(ctx context.Context, username, email string) (*models.User, bool, error)
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, username string) error

	// SaveCode stores the code state and hash of user.
	SaveCode(ctx context.Context, user *models.User) error
	// ClaimCode consumes the code only while it is still active with the
	// given hash. It reports whether this call performed the transition.
	ClaimCode(ctx context.Context, userID, codeHash string) (bool, error)
	// ConsumeCode burns the code unconditionally.
	ConsumeCode(ctx context.Context, userID string) error
}

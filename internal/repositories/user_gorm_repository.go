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

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// GetOrCreate looks up the exact (username, email) pair and inserts it when
// missing. The unique indexes on username and email arbitrate races.
func (r *GORMUserRepository) GetOrCreate(ctx context.Context, username, email string) (*models.User, bool, error) {
	user, err := r.findPair(ctx, username, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	user = &models.User{
		Username:  username,
		Email:     email,
		Role:      models.RoleUser,
		CodeState: models.CodeUnset,
	}
	if err := r.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// a concurrent signup may have just inserted this very pair
			if existing, findErr := r.findPair(ctx, username, email); findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return user, true, nil
}

func (r *GORMUserRepository) findPair(ctx context.Context, username, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "username = ? AND email = ?", username, email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username %s and email: %w", username, err)
	}
	return &user, nil
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.CodeState == "" {
		user.CodeState = models.CodeUnset
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user by their username from the database.
func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with username %s: %w", username, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username %s: %w", username, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, err)
	}
	return &user, nil
}

// List returns all users ordered by username.
func (r *GORMUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update writes the profile and role columns. Code columns are left alone.
func (r *GORMUserRepository) Update(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"username":     user.Username,
		"email":        user.Email,
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"bio":          user.Bio,
		"role":         user.Role,
		"is_superuser": user.IsSuperuser,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", user.ID, apperrors.ErrNotFound)
	}
	return nil
}

// Delete removes a user together with their reviews and comments.
func (r *GORMUserRepository) Delete(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "username = ?", username).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user with username %s: %w", username, apperrors.ErrNotFound)
			}
			return fmt.Errorf("failed to get user by username %s: %w", username, err)
		}

		ownReviews := tx.Model(&models.Review{}).Select("id").Where("author_id = ?", user.ID)
		if err := tx.Where("author_id = ? OR review_id IN (?)", user.ID, ownReviews).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments of %s: %w", username, err)
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews of %s: %w", username, err)
		}
		if err := tx.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
			return fmt.Errorf("failed to delete user %s: %w", username, err)
		}
		return nil
	})
}

// SaveCode stores the code state and hash of user.
func (r *GORMUserRepository) SaveCode(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"code_state": user.CodeState,
		"code_hash":  user.CodeHash,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to save confirmation code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", user.ID, apperrors.ErrNotFound)
	}
	return nil
}

// ClaimCode is a compare-and-swap on (code_state, code_hash). Only one of
// several concurrent callers can see a row affected.
func (r *GORMUserRepository) ClaimCode(ctx context.Context, userID, codeHash string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND code_state = ? AND code_hash = ?", userID, models.CodeActive, codeHash).
		Updates(map[string]any{
			"code_state": models.CodeConsumed,
			"code_hash":  "",
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim confirmation code: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ConsumeCode burns the code unconditionally.
func (r *GORMUserRepository) ConsumeCode(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"code_state": models.CodeConsumed,
		"code_hash":  "",
	})
	if res.Error != nil {
		return fmt.Errorf("failed to consume confirmation code: %w", res.Error)
	}
	return nil
}

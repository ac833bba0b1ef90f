package services

import (
	"context"
	"unicode/utf8"

	"yamdb/internal/apperrors"
	"yamdb/internal/models"
	"yamdb/internal/repositories"
	"yamdb/internal/validation"
	"yamdb/pkg/logger"
)

const nameMaxLength = 150

// CreateUserInput is the body of an admin user creation request.
type CreateUserInput struct {
	Username  string      `json:"username" validate:"required,username"`
	Email     string      `json:"email" validate:"required,useremail"`
	FirstName string      `json:"first_name" validate:"max=150"`
	LastName  string      `json:"last_name" validate:"max=150"`
	Bio       string      `json:"bio"`
	Role      models.Role `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

// UserPatch is a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Username  *string      `json:"username"`
	Email     *string      `json:"email"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	Bio       *string      `json:"bio"`
	Role      *models.Role `json:"role"`
}

// UserService handles the self profile and admin user management.
type UserService struct {
	repo      repositories.UserRepository
	validator *validation.Validator
	log       logger.Log
}

// NewUserService creates a new UserService.
func NewUserService(repo repositories.UserRepository, validator *validation.Validator, log logger.Log) *UserService {
	return &UserService{
		repo:      repo,
		validator: validator,
		log:       log,
	}
}

// UpdateMe applies patch to the requester's own profile. Role changes are ignored.
func (s *UserService) UpdateMe(ctx context.Context, me *models.User, patch UserPatch) (*models.User, error) {
	patch.Role = nil
	updated := *me
	if err := s.apply(&updated, patch); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListUsers returns all users ordered by username.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

// GetUser retrieves a user by username.
func (s *UserService) GetUser(ctx context.Context, username string) (*models.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// CreateUser creates an account on behalf of an admin. The new user still
// signs in through the confirmation code flow.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      in.Role,
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user created", "username", user.Username, "role", string(user.Role))
	return user, nil
}

// UpdateUser applies patch, role included, to the user with the given username.
func (s *UserService) UpdateUser(ctx context.Context, username string, patch UserPatch) (*models.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.apply(user, patch); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user with everything they authored.
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	if err := s.repo.Delete(ctx, username); err != nil {
		return err
	}
	s.log.Info("user deleted", "username", username)
	return nil
}

// apply validates every present field of patch and copies it onto user. All
// field errors are reported together.
func (s *UserService) apply(user *models.User, patch UserPatch) error {
	fields := map[string]string{}

	if patch.Username != nil {
		if err := s.validator.CheckUsername(*patch.Username); err != nil {
			fields["username"] = err.Error()
		} else {
			user.Username = *patch.Username
		}
	}
	if patch.Email != nil {
		if err := s.validator.CheckEmail(*patch.Email); err != nil {
			fields["email"] = err.Error()
		} else {
			user.Email = *patch.Email
		}
	}
	if patch.FirstName != nil {
		if utf8.RuneCountInString(*patch.FirstName) > nameMaxLength {
			fields["first_name"] = "ensure this field has no more than 150 characters"
		} else {
			user.FirstName = *patch.FirstName
		}
	}
	if patch.LastName != nil {
		if utf8.RuneCountInString(*patch.LastName) > nameMaxLength {
			fields["last_name"] = "ensure this field has no more than 150 characters"
		} else {
			user.LastName = *patch.LastName
		}
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.Role != nil {
		if !patch.Role.IsValid() {
			fields["role"] = "must be one of: user moderator admin"
		} else {
			user.Role = *patch.Role
		}
	}

	if len(fields) > 0 {
		return &apperrors.ValidationError{Fields: fields}
	}
	return nil
}

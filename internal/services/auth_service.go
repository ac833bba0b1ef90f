package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"yamdb/internal/apperrors"
	"yamdb/internal/config"
	"yamdb/internal/models"
	"yamdb/internal/repositories"
	"yamdb/internal/validation"
	"yamdb/pkg/logger"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// CodeGenerator produces confirmation codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// CodeSender delivers a freshly issued confirmation code to its user.
type CodeSender interface {
	SendCode(ctx context.Context, user *models.User, code string) error
}

// SignupInput is the body of a signup request.
type SignupInput struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,useremail"`
}

// TokenInput is the body of a token exchange request.
type TokenInput struct {
	Username         string `json:"username" validate:"required,username"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

// TokenClaims are carried by every access token. Subject holds the user ID.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

// AuthService handles signup, code exchange and bearer tokens.
type AuthService struct {
	userRepo  repositories.UserRepository
	codes     CodeGenerator
	mailer    CodeSender
	validator *validation.Validator
	cfg       config.AuthConfig
	jwtSecret []byte
	tokenTTL  time.Duration
	log       logger.Log
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repositories.UserRepository,
	codes CodeGenerator,
	mailer CodeSender,
	validator *validation.Validator,
	cfg config.AuthConfig,
	jwtCfg config.JWTConfig,
	log logger.Log,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		codes:     codes,
		mailer:    mailer,
		validator: validator,
		cfg:       cfg,
		jwtSecret: []byte(jwtCfg.Secret),
		tokenTTL:  jwtCfg.TTL,
		log:       log,
		now:       time.Now,
	}
}

// Signup gets or creates the user for the exact (username, email) pair, issues
// a new confirmation code and emails it. Calling it again for the same pair
// replaces the previous code.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user, created, err := s.userRepo.GetOrCreate(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.CodeHashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash confirmation code: %w", err)
	}
	user.IssueCode(string(hash))
	if err := s.userRepo.SaveCode(ctx, user); err != nil {
		return nil, err
	}

	if err := s.mailer.SendCode(ctx, user, code); err != nil {
		s.log.ErrorErr("confirmation code delivery failed", err, "username", user.Username)
		return nil, fmt.Errorf("failed to deliver confirmation code: %w", err)
	}

	s.log.Info("confirmation code issued", "username", user.Username, "created", created)
	return user, nil
}

// ObtainToken exchanges a confirmation code for an access token. Any failed
// attempt burns the stored code.
func (s *AuthService) ObtainToken(ctx context.Context, in TokenInput) (string, error) {
	if err := s.validator.Struct(in); err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return "", err
	}

	// bcrypt ignores input past 72 bytes, so the length is checked first.
	if !user.HasActiveCode() ||
		utf8.RuneCountInString(in.ConfirmationCode) != s.cfg.CodeLength ||
		bcrypt.CompareHashAndPassword([]byte(user.CodeHash), []byte(in.ConfirmationCode)) != nil {
		if err := s.userRepo.ConsumeCode(ctx, user.ID); err != nil {
			return "", err
		}
		s.log.Warn("invalid confirmation code", "username", user.Username)
		return "", apperrors.ErrInvalidCode
	}

	if s.cfg.RotateCodeOnSuccess {
		claimed, err := s.userRepo.ClaimCode(ctx, user.ID, user.CodeHash)
		if err != nil {
			return "", err
		}
		if !claimed {
			// a concurrent exchange or signup changed the code first
			s.log.Warn("confirmation code already used", "username", user.Username)
			return "", apperrors.ErrInvalidCode
		}
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", err
	}
	s.log.Info("access token issued", "username", user.Username)
	return token, nil
}

// IssueToken signs an HS256 access token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := TokenClaims{
		Username: user.Username,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Authenticate resolves a bearer token to its user. Tokens of deleted users
// are rejected as unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", apperrors.ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}

// Package apperrors holds the error taxonomy shared by services and handlers.
package apperrors

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrConflict         = errors.New("account with this email or username already exists")
	ErrNotFound         = errors.New("not found")
	ErrInvalidCode      = errors.New("invalid confirmation code, request a new one")
	ErrUnauthenticated  = errors.New("authentication credentials were not provided or are invalid")
	ErrPermissionDenied = errors.New("you do not have permission to perform this action")
	ErrDuplicateReview  = errors.New("you have already reviewed this title")
)

// ValidationError lists the offending fields with a message per field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

package apperrors_test

import (
	"fmt"
	"testing"

	"yamdb/internal/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := &apperrors.ValidationError{Fields: map[string]string{
		"username": "reserved",
		"email":    "invalid",
	}}
	assert.Equal(t, "validation failed: email: invalid; username: reserved", err.Error())

	wrapped := fmt.Errorf("signup: %w", err)
	verr, ok := apperrors.IsValidation(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "reserved", verr.Fields["username"])

	_, ok = apperrors.IsValidation(apperrors.ErrConflict)
	assert.False(t, ok)
}

package handlers

import (
	"errors"

	"yamdb/internal/apperrors"
	"yamdb/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// respondError writes err as a JSON error body with the matching status.
func respondError(c *fiber.Ctx, log logger.Log, err error) error {
	if verr, ok := apperrors.IsValidation(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	}

	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrDuplicateReview):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Conflict",
			"error":   err.Error(),
		})
	case errors.Is(err, apperrors.ErrInvalidCode):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   err.Error(),
		})
	case errors.Is(err, apperrors.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Not found",
			"error":   err.Error(),
		})
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication required",
			"error":   err.Error(),
		})
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Permission denied",
			"error":   err.Error(),
		})
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"message": fiberErr.Message,
		})
	}

	log.ErrorErr("request failed", err, "method", c.Method(), "path", c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
		"error":   err.Error(),
	})
}

// ErrorHandler is the Fiber error handler for errors returned by middleware
// and unmatched routes.
func ErrorHandler(log logger.Log) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return respondError(c, log, err)
	}
}

func invalidBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

package middleware

import (
	"context"
	"strings"

	"yamdb/internal/models"
	"yamdb/internal/permissions"

	"github.com/gofiber/fiber/v2"
)

const userKey = "user"

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Authenticate identifies the requester from an optional bearer token and
// stores the user in the Fiber context. Requests without an Authorization
// header continue anonymously; a malformed or invalid token is rejected.
func Authenticate(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Next()
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		user, err := auth.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// CurrentUser returns the authenticated requester, or nil for anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

// PermissionRequest describes the current request to the permission checks.
func PermissionRequest(c *fiber.Ctx) permissions.Request {
	return permissions.Request{Method: c.Method(), User: CurrentUser(c)}
}

// Require runs the request-level permission checks before the handler.
// Denials are passed to the app error handler.
func Require(evaluator *permissions.Evaluator, checks ...permissions.Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := evaluator.Allow(PermissionRequest(c), checks...); err != nil {
			return err
		}
		return c.Next()
	}
}

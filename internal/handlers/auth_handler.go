package handlers

import (
	"yamdb/internal/services"
	"yamdb/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for signup and token exchange.
type AuthHandler struct {
	authService *services.AuthService
	log         logger.Log
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log logger.Log) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.HandleSignup)
	authRoutes.Post("/token", h.HandleToken)
}

// HandleSignup creates the account if needed and emails a fresh confirmation code.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var req services.SignupInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	user, err := h.authService.Signup(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"username": user.Username,
		"email":    user.Email,
	})
}

// HandleToken exchanges a confirmation code for an access token.
func (h *AuthHandler) HandleToken(c *fiber.Ctx) error {
	var req services.TokenInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	token, err := h.authService.ObtainToken(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
	})
}

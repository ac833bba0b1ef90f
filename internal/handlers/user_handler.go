package handlers

import (
	"yamdb/internal/middleware"
	"yamdb/internal/permissions"
	"yamdb/internal/services"
	"yamdb/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// UserHandler serves the self profile and admin user management.
type UserHandler struct {
	service   *services.UserService
	evaluator *permissions.Evaluator
	log       logger.Log
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, evaluator *permissions.Evaluator, log logger.Log) *UserHandler {
	return &UserHandler{
		service:   service,
		evaluator: evaluator,
		log:       log,
	}
}

// RegisterRoutes registers the user routes. /users/me must come before
// /users/:username, which is why "me" is a reserved username.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	authenticated := middleware.Require(h.evaluator, permissions.Authenticated)
	adminOnly := middleware.Require(h.evaluator, permissions.AdminOnly)

	userRoutes := router.Group("/users")
	userRoutes.Get("/me", authenticated, h.HandleGetMe)
	userRoutes.Patch("/me", authenticated, h.HandleUpdateMe)

	userRoutes.Get("/", adminOnly, h.HandleListUsers)
	userRoutes.Post("/", adminOnly, h.HandleCreateUser)
	userRoutes.Get("/:username", adminOnly, h.HandleGetUser)
	userRoutes.Patch("/:username", adminOnly, h.HandleUpdateUser)
	userRoutes.Delete("/:username", adminOnly, h.HandleDeleteUser)
}

func (h *UserHandler) HandleGetMe(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

// HandleUpdateMe applies a partial profile update. A role in the body is ignored.
func (h *UserHandler) HandleUpdateMe(c *fiber.Ctx) error {
	var patch services.UserPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c, err)
	}

	user, err := h.service.UpdateMe(c.UserContext(), middleware.CurrentUser(c), patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(users)
}

func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req services.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	user, err := h.service.CreateUser(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.service.GetUser(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	var patch services.UserPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c, err)
	}

	user, err := h.service.UpdateUser(c.UserContext(), c.Params("username"), patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.service.DeleteUser(c.UserContext(), c.Params("username")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package handlers

import (
	"yamdb/internal/middleware"
	"yamdb/internal/permissions"
	"yamdb/internal/services"
	"yamdb/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// TitleHandler handles HTTP requests for titles.
type TitleHandler struct {
	service   *services.TitleService
	evaluator *permissions.Evaluator
	log       logger.Log
}

// NewTitleHandler creates a new TitleHandler.
func NewTitleHandler(service *services.TitleService, evaluator *permissions.Evaluator, log logger.Log) *TitleHandler {
	return &TitleHandler{
		service:   service,
		evaluator: evaluator,
		log:       log,
	}
}

// RegisterRoutes registers the title routes. The permission check is attached
// per route so it does not leak onto the nested review routes.
func (h *TitleHandler) RegisterRoutes(router fiber.Router) {
	adminOrReadOnly := middleware.Require(h.evaluator, permissions.AdminOrReadOnly)

	titleRoutes := router.Group("/titles")
	titleRoutes.Get("/", adminOrReadOnly, h.HandleGetTitles)
	titleRoutes.Post("/", adminOrReadOnly, h.HandleCreateTitle)
	titleRoutes.Get("/:title_id", adminOrReadOnly, h.HandleGetTitleByID)
	titleRoutes.Delete("/:title_id", adminOrReadOnly, h.HandleDeleteTitle)
}

// HandleGetTitles retrieves all titles.
func (h *TitleHandler) HandleGetTitles(c *fiber.Ctx) error {
	titles, err := h.service.GetAllTitles(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(titles)
}

// HandleGetTitleByID retrieves a single title by its ID.
func (h *TitleHandler) HandleGetTitleByID(c *fiber.Ctx) error {
	title, err := h.service.GetTitleByID(c.UserContext(), c.Params("title_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(title)
}

// HandleCreateTitle creates a new title.
func (h *TitleHandler) HandleCreateTitle(c *fiber.Ctx) error {
	var req services.TitleInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	title, err := h.service.CreateTitle(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(title)
}

// HandleDeleteTitle deletes a title with its reviews and comments.
func (h *TitleHandler) HandleDeleteTitle(c *fiber.Ctx) error {
	if err := h.service.DeleteTitle(c.UserContext(), c.Params("title_id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package handlers

import (
	"time"

	"yamdb/internal/middleware"
	"yamdb/internal/models"
	"yamdb/internal/permissions"
	"yamdb/internal/services"
	"yamdb/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type reviewResponse struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

type commentResponse struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

func toReviewResponse(r *models.Review) reviewResponse {
	return reviewResponse{ID: r.ID, Text: r.Text, Author: r.Author.Username, Score: r.Score, PubDate: r.PubDate}
}

func toCommentResponse(c *models.Comment) commentResponse {
	return commentResponse{ID: c.ID, Text: c.Text, Author: c.Author.Username, PubDate: c.PubDate}
}

// ReviewHandler handles HTTP requests for reviews and their comments.
type ReviewHandler struct {
	service   *services.ReviewService
	evaluator *permissions.Evaluator
	log       logger.Log
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service *services.ReviewService, evaluator *permissions.Evaluator, log logger.Log) *ReviewHandler {
	return &ReviewHandler{
		service:   service,
		evaluator: evaluator,
		log:       log,
	}
}

// RegisterRoutes registers the review and comment routes. Ownership of a
// specific review or comment is checked by the service.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router) {
	readOrAuthenticated := middleware.Require(h.evaluator, permissions.AuthenticatedOrReadOnly)

	reviewRoutes := router.Group("/titles/:title_id/reviews", readOrAuthenticated)
	reviewRoutes.Get("/", h.HandleListReviews)
	reviewRoutes.Post("/", h.HandleCreateReview)
	reviewRoutes.Get("/:review_id", h.HandleGetReview)
	reviewRoutes.Patch("/:review_id", h.HandleUpdateReview)
	reviewRoutes.Delete("/:review_id", h.HandleDeleteReview)

	reviewRoutes.Get("/:review_id/comments", h.HandleListComments)
	reviewRoutes.Post("/:review_id/comments", h.HandleCreateComment)
	reviewRoutes.Get("/:review_id/comments/:comment_id", h.HandleGetComment)
	reviewRoutes.Patch("/:review_id/comments/:comment_id", h.HandleUpdateComment)
	reviewRoutes.Delete("/:review_id/comments/:comment_id", h.HandleDeleteComment)
}

func (h *ReviewHandler) HandleListReviews(c *fiber.Ctx) error {
	reviews, err := h.service.ListReviews(c.UserContext(), c.Params("title_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReviewResponse(&reviews[i]))
	}
	return c.JSON(out)
}

func (h *ReviewHandler) HandleCreateReview(c *fiber.Ctx) error {
	var req services.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	review, err := h.service.CreateReview(c.UserContext(), middleware.CurrentUser(c), c.Params("title_id"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReviewResponse(review))
}

func (h *ReviewHandler) HandleGetReview(c *fiber.Ctx) error {
	review, err := h.service.GetReview(c.UserContext(), middleware.PermissionRequest(c), c.Params("title_id"), c.Params("review_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toReviewResponse(review))
}

func (h *ReviewHandler) HandleUpdateReview(c *fiber.Ctx) error {
	var patch services.ReviewPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c, err)
	}

	review, err := h.service.UpdateReview(c.UserContext(), middleware.PermissionRequest(c),
		c.Params("title_id"), c.Params("review_id"), patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toReviewResponse(review))
}

func (h *ReviewHandler) HandleDeleteReview(c *fiber.Ctx) error {
	err := h.service.DeleteReview(c.UserContext(), middleware.PermissionRequest(c), c.Params("title_id"), c.Params("review_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ReviewHandler) HandleListComments(c *fiber.Ctx) error {
	comments, err := h.service.ListComments(c.UserContext(), c.Params("title_id"), c.Params("review_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]commentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toCommentResponse(&comments[i]))
	}
	return c.JSON(out)
}

func (h *ReviewHandler) HandleCreateComment(c *fiber.Ctx) error {
	var req services.CommentInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	comment, err := h.service.CreateComment(c.UserContext(), middleware.CurrentUser(c),
		c.Params("title_id"), c.Params("review_id"), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCommentResponse(comment))
}

func (h *ReviewHandler) HandleGetComment(c *fiber.Ctx) error {
	comment, err := h.service.GetComment(c.UserContext(), middleware.PermissionRequest(c),
		c.Params("title_id"), c.Params("review_id"), c.Params("comment_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toCommentResponse(comment))
}

func (h *ReviewHandler) HandleUpdateComment(c *fiber.Ctx) error {
	var patch services.CommentPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c, err)
	}

	comment, err := h.service.UpdateComment(c.UserContext(), middleware.PermissionRequest(c),
		c.Params("title_id"), c.Params("review_id"), c.Params("comment_id"), patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toCommentResponse(comment))
}

func (h *ReviewHandler) HandleDeleteComment(c *fiber.Ctx) error {
	err := h.service.DeleteComment(c.UserContext(), middleware.PermissionRequest(c),
		c.Params("title_id"), c.Params("review_id"), c.Params("comment_id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

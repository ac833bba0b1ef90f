package handlers

import (
	"yamdb/internal/middleware"
	"yamdb/internal/permissions"
	"yamdb/internal/services"
	"yamdb/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// Services bundles everything the API routes call into.
type Services struct {
	Auth    *services.AuthService
	Users   *services.UserService
	Titles  *services.TitleService
	Reviews *services.ReviewService
}

// RegisterAPI mounts the /v1 API on app. Every route sees the optional
// bearer authentication; the permission checks are attached per route.
func RegisterAPI(app fiber.Router, svc Services, evaluator *permissions.Evaluator, log logger.Log) {
	apiV1 := app.Group("/v1", middleware.Authenticate(svc.Auth))

	NewAuthHandler(svc.Auth, log).RegisterRoutes(apiV1)
	NewUserHandler(svc.Users, evaluator, log).RegisterRoutes(apiV1)
	NewTitleHandler(svc.Titles, evaluator, log).RegisterRoutes(apiV1)
	NewReviewHandler(svc.Reviews, evaluator, log).RegisterRoutes(apiV1)
}

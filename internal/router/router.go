package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/studyplan-api/internal/config"
	"github.com/noah-isme/studyplan-api/internal/handler"
	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	ScheduleHandler     *handler.ScheduleHandler
	QuizHandler         *handler.QuizHandler
	UserHandler         *handler.UserHandler
	NotificationHandler *handler.NotificationHandler
	HistoryHandler      *handler.NotificationHistoryHandler
	SupportHandler      *handler.SupportHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterPublic(api)
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", jwtMiddleware)

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(protected)
	}
	if deps.ScheduleHandler != nil {
		deps.ScheduleHandler.Register(protected)
	}
	if deps.QuizHandler != nil {
		deps.QuizHandler.Register(protected)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(protected)
	}
	if deps.HistoryHandler != nil {
		deps.HistoryHandler.Register(protected)
	}
	if deps.SupportHandler != nil {
		deps.SupportHandler.Register(protected)
	}

	admin := protected.Group("/admin", middleware.RequireRole(middleware.AuthRoleAdmin))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterAdmin(admin)
	}
	if deps.SupportHandler != nil {
		deps.SupportHandler.RegisterAdmin(admin)
	}
	if deps.NotificationHandler != nil {
		notifications := admin.Group("/notifications", middleware.RateLimit("notification-trigger", cfg.TriggerRateLimit, time.Minute))
		deps.NotificationHandler.Register(notifications)
	}
}

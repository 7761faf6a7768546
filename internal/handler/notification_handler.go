package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/internal/utils"
)

// CheckScheduleLister reports the upcoming activations of the scheduled checks.
type CheckScheduleLister interface {
	Entries() []service.ScheduledCheck
}

// NotificationHandler lets administrators trigger notification checks on demand.
type NotificationHandler struct {
	engine    service.NotificationEngine
	scheduler CheckScheduleLister
	logger    zerolog.Logger
	timeout   time.Duration
}

// NewNotificationHandler constructs a handler. scheduler may be nil when background checks are disabled.
func NewNotificationHandler(engine service.NotificationEngine, scheduler CheckScheduleLister, logger zerolog.Logger, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{
		engine:    engine,
		scheduler: scheduler,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		timeout:   timeout,
	}
}

// Register binds the notification routes under an admin-only router.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.schedule)
	router.Post("/:check/run", h.run)
}

func (h *NotificationHandler) run(c *fiber.Ctx) error {
	check, err := service.ParseNotificationCheck(c.Params("check"))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c))
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	logger := requestLogger(h.logger, c)
	logger.Info().Str("check", string(check)).Uint("actor_id", userIDFromContext(c)).Msg("manual notification check requested")

	report, err := h.engine.Run(ctx, check)
	if err != nil {
		return writeServiceError(c, logger, err, "notification check failed")
	}

	return utils.SendSuccess(c, "notification check completed", report)
}

func (h *NotificationHandler) schedule(c *fiber.Ctx) error {
	checks := service.NotificationChecks()
	names := make([]string, 0, len(checks))
	for _, check := range checks {
		names = append(names, string(check))
	}

	if h.scheduler == nil {
		return utils.OK(c, []service.ScheduledCheck{}, "background checks disabled", fiber.Map{"checks": names})
	}
	return utils.OK(c, h.scheduler.Entries(), "scheduled checks", fiber.Map{"checks": names})
}

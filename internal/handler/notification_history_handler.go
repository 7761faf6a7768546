package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/internal/utils"
)

// NotificationHistoryHandler lets students and parents review the notifications sent about a student.
type NotificationHistoryHandler struct {
	history service.NotificationHistoryService
	policy  service.AccessPolicy
	logger  zerolog.Logger
}

// NewNotificationHistoryHandler creates a history handler.
func NewNotificationHistoryHandler(history service.NotificationHistoryService, policy service.AccessPolicy, logger zerolog.Logger) *NotificationHistoryHandler {
	return &NotificationHistoryHandler{
		history: history,
		policy:  policy,
		logger:  logger.With().Str("component", "notification_history_handler").Logger(),
	}
}

// Register attaches the history routes.
func (h *NotificationHistoryHandler) Register(router fiber.Router) {
	family := middleware.AuthOptions{Role: middleware.AuthRoleFamily}
	router.Get("/students/:id/notifications", middleware.WithAuth(h.list, family))
	router.Post("/notifications/:id/read", middleware.WithAuth(h.markRead, family))
}

func (h *NotificationHistoryHandler) list(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)
	studentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.policy.CanAccessStudent(c.UserContext(), actorFromContext(c), studentID); err != nil {
		return writeServiceError(c, logger, err, "failed to authorize request")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.history.List(c.UserContext(), studentID, page, pageSize)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to load notification history")
	}

	return utils.OK(c, result.Items, "notification history retrieved", result.Pagination)
}

func (h *NotificationHistoryHandler) markRead(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	entry, err := h.history.Get(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to load notification")
	}
	if err := h.policy.CanAccessStudent(c.UserContext(), actorFromContext(c), entry.StudentID); err != nil {
		return writeServiceError(c, logger, err, "failed to authorize request")
	}

	updated, err := h.history.MarkRead(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to mark notification as read")
	}

	return utils.SendSuccess(c, "notification marked as read", updated)
}

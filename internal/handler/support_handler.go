package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/internal/utils"
)

// SupportHandler exposes the help desk.
type SupportHandler struct {
	support   service.SupportService
	logger    zerolog.Logger
	openLimit int
}

// NewSupportHandler constructs a support handler. openLimit caps ticket creation per user and minute.
func NewSupportHandler(support service.SupportService, logger zerolog.Logger, openLimit int) *SupportHandler {
	return &SupportHandler{
		support:   support,
		logger:    logger.With().Str("component", "support_handler").Logger(),
		openLimit: openLimit,
	}
}

// Register attaches the ticket routes for authenticated users.
func (h *SupportHandler) Register(router fiber.Router) {
	family := middleware.AuthOptions{Role: middleware.AuthRoleFamily}

	tickets := router.Group("/support/tickets")
	tickets.Post("/", middleware.RateLimit("support-open", h.openLimit, time.Minute), middleware.WithAuth(h.open, family))
	tickets.Get("/", middleware.WithAuth(h.list, family))
	tickets.Get("/:id", middleware.WithAuth(h.get, family))
	tickets.Post("/:id/messages", middleware.WithAuth(h.reply, family))
}

// RegisterAdmin attaches ticket management routes under an admin-only router.
func (h *SupportHandler) RegisterAdmin(router fiber.Router) {
	router.Patch("/support/tickets/:id", h.update)
	router.Get("/support/stats", h.stats)
}

func (h *SupportHandler) open(c *fiber.Ctx) error {
	var req dto.SupportTicketCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ticket, err := h.support.Open(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to open support ticket")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "support ticket opened", ticket)
}

func (h *SupportHandler) list(c *fiber.Ctx) error {
	var req dto.SupportTicketListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.support.List(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to list support tickets")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"filters":    fiber.Map{"status": req.Status},
	}
	return utils.OK(c, result.Items, "support tickets retrieved", meta)
}

func (h *SupportHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ticket, err := h.support.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to load support ticket")
	}

	return utils.SendSuccess(c, "support ticket retrieved", ticket)
}

func (h *SupportHandler) reply(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.SupportMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.support.Reply(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to send message")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *SupportHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.SupportTicketUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ticket, err := h.support.Update(c.UserContext(), id, req)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to update support ticket")
	}

	return utils.SendSuccess(c, "support ticket updated", ticket)
}

func (h *SupportHandler) stats(c *fiber.Ctx) error {
	stats, err := h.support.Statistics(c.UserContext())
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to compute support statistics")
	}
	return utils.SendSuccess(c, "support statistics retrieved", stats)
}

package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/internal/utils"
)

// ScheduleHandler exposes schedule generation, views and slot completion.
type ScheduleHandler struct {
	schedules service.ScheduleService
	tracker   service.CompletionTracker
	policy    service.AccessPolicy
	logger    zerolog.Logger
}

// NewScheduleHandler creates a schedule handler.
func NewScheduleHandler(schedules service.ScheduleService, tracker service.CompletionTracker, policy service.AccessPolicy, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		schedules: schedules,
		tracker:   tracker,
		policy:    policy,
		logger:    logger.With().Str("component", "schedule_handler").Logger(),
	}
}

// Register attaches the schedule routes. Students, their parents and admins may use them.
func (h *ScheduleHandler) Register(router fiber.Router) {
	family := middleware.AuthOptions{Role: middleware.AuthRoleFamily}

	students := router.Group("/students/:id/schedule")
	students.Post("/generate", middleware.WithAuth(h.generate, family))
	students.Put("/", middleware.WithAuth(h.importSchedule, family))
	students.Delete("/", middleware.WithAuth(h.clear, family))
	students.Get("/week", middleware.WithAuth(h.week, family))
	students.Get("/days/:day", middleware.WithAuth(h.day, family))
	students.Get("/days/:day/stats", middleware.WithAuth(h.dayStats, family))

	slots := router.Group("/slots")
	slots.Post("/:id/complete", middleware.WithAuth(h.complete, family))
	slots.Post("/:id/uncomplete", middleware.WithAuth(h.uncomplete, family))
}

// authorizedStudent resolves the :id param and checks the caller may access it.
func (h *ScheduleHandler) authorizedStudent(c *fiber.Ctx) (uint, bool, error) {
	studentID, err := parseIDParam(c, "id")
	if err != nil {
		return 0, false, utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.policy.CanAccessStudent(c.UserContext(), actorFromContext(c), studentID); err != nil {
		return 0, false, writeServiceError(c, requestLogger(h.logger, c), err, "failed to authorize request")
	}
	return studentID, true, nil
}

func (h *ScheduleHandler) generate(c *fiber.Ctx) error {
	studentID, ok, err := h.authorizedStudent(c)
	if !ok {
		return err
	}

	var req dto.GenerateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.schedules.Generate(c.UserContext(), studentID, req)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to generate schedule")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "schedule generated", result)
}

func (h *ScheduleHandler) importSchedule(c *fiber.Ctx) error {
	studentID, ok, err := h.authorizedStudent(c)
	if !ok {
		return err
	}

	var req dto.ImportScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Schedule) == 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", map[string]string{"Schedule": "required"})
	}

	result, err := h.schedules.Import(c.UserContext(), studentID, req.Schedule)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to import schedule")
	}

	return utils.SendSuccess(c, "schedule imported", result)
}

func (h *ScheduleHandler) clear(c *fiber.Ctx) error {
	studentID, ok, err := h.authorizedStudent(c)
	if !ok {
		return err
	}

	removed, err := h.schedules.Clear(c.UserContext(), studentID)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to clear schedule")
	}

	return utils.SendSuccess(c, "schedule cleared", fiber.Map{"removed": removed})
}

func (h *ScheduleHandler) week(c *fiber.Ctx) error {
	studentID, ok, err := h.authorizedStudent(c)
	if !ok {
		return err
	}

	view, err := h.tracker.WeeklyView(c.UserContext(), studentID)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to load weekly schedule")
	}

	return utils.SendSuccess(c, "weekly schedule retrieved", view)
}

func (h *ScheduleHandler) day(c *fiber.Ctx) error {
	studentID, ok, err := h.authorizedStudent(c)
	if !ok {
		return err
	}
	day, err := h.dayParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	view, err := h.tracker.DailyView(c.UserContext(), studentID, day)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to load daily schedule")
	}

	return utils.SendSuccess(c, "daily schedule retrieved", view)
}

func (h *ScheduleHandler) dayStats(c *fiber.Ctx) error {
	studentID, ok, err := h.authorizedStudent(c)
	if !ok {
		return err
	}
	day, err := h.dayParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.tracker.DailyStats(c.UserContext(), studentID, day)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to compute daily stats")
	}

	return utils.OK(c, stats, "daily stats computed", fiber.Map{"day": string(day)})
}

func (h *ScheduleHandler) complete(c *fiber.Ctx) error {
	return h.setCompletion(c, true)
}

func (h *ScheduleHandler) uncomplete(c *fiber.Ctx) error {
	return h.setCompletion(c, false)
}

func (h *ScheduleHandler) setCompletion(c *fiber.Ctx, completed bool) error {
	logger := requestLogger(h.logger, c)
	slotID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	slot, err := h.schedules.GetSlot(c.UserContext(), slotID)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to load slot")
	}
	if err := h.policy.CanAccessStudent(c.UserContext(), actorFromContext(c), slot.StudentID); err != nil {
		return writeServiceError(c, logger, err, "failed to authorize request")
	}

	updated, err := h.schedules.SetCompletion(c.UserContext(), slotID, completed)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to update slot")
	}

	message := "slot marked as not completed"
	if completed {
		message = "slot marked as completed"
	}
	return utils.SendSuccess(c, message, updated)
}

func (h *ScheduleHandler) dayParam(c *fiber.Ctx) (models.Weekday, error) {
	raw := strings.TrimSpace(c.Params("day"))
	if strings.EqualFold(raw, "today") {
		return h.tracker.Today(), nil
	}
	return models.ParseWeekday(raw)
}

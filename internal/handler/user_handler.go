package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/internal/utils"
)

// UserHandler exposes account administration and the parent overview.
type UserHandler struct {
	users  service.UserService
	logger zerolog.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(users service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches the parent-facing routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/parents/:id/children", middleware.WithAuth(h.children, middleware.AuthOptions{Role: middleware.AuthRoleParent}))
}

// RegisterAdmin attaches account management routes under an admin-only router.
func (h *UserHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/users", h.create)
	router.Put("/students/:id/parent", h.linkParent)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.Create(c.UserContext(), req)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to create user")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", user)
}

func (h *UserHandler) linkParent(c *fiber.Ctx) error {
	studentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.LinkParentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	student, err := h.users.LinkParent(c.UserContext(), studentID, req.ParentID)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to link parent")
	}

	return utils.SendSuccess(c, "parent link updated", student)
}

func (h *UserHandler) children(c *fiber.Ctx) error {
	parentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	actor := actorFromContext(c)
	if actor.Role != models.RoleAdmin && actor.ID != parentID {
		return utils.SendError(c, fiber.StatusForbidden, service.ErrForbidden.Error())
	}

	children, err := h.users.Children(c.UserContext(), parentID)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to load children")
	}

	return utils.OK(c, children, "children retrieved", fiber.Map{"count": len(children)})
}

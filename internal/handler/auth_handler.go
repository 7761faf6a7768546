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

// AuthHandler exposes login and password changes.
type AuthHandler struct {
	auth       service.AuthService
	loginLimit int
	logger     zerolog.Logger
}

// NewAuthHandler creates an auth handler. loginLimit caps login attempts per client per minute.
func NewAuthHandler(auth service.AuthService, loginLimit int, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		loginLimit: loginLimit,
		logger:     logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic attaches routes that must be reachable without a token.
func (h *AuthHandler) RegisterPublic(router fiber.Router) {
	router.Post("/auth/login", middleware.RateLimit("auth-login", h.loginLimit, time.Minute), h.login)
}

// Register attaches routes for authenticated callers.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/auth/change-password", middleware.WithAuth(h.changePassword, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}))
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to log in")
	}

	return utils.SendSuccess(c, "login successful", session)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.auth.ChangePassword(c.UserContext(), userIDFromContext(c), req); err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to change password")
	}

	return utils.SendSuccess(c, "password changed", nil)
}

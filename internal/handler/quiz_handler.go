package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/service"
	"github.com/noah-isme/studyplan-api/internal/utils"
)

// QuizHandler exposes quiz assignment, generation, listing and submission.
type QuizHandler struct {
	quizzes service.QuizService
	policy  service.AccessPolicy
	logger  zerolog.Logger
}

// NewQuizHandler creates a quiz handler.
func NewQuizHandler(quizzes service.QuizService, policy service.AccessPolicy, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizzes: quizzes,
		policy:  policy,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register attaches the quiz routes.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Get("/students/:id/quizzes", middleware.WithAuth(h.list, middleware.AuthOptions{Role: middleware.AuthRoleFamily}))
	router.Post("/students/:id/quizzes", middleware.WithAuth(h.create, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
	router.Post("/students/:id/quizzes/generate", middleware.WithAuth(h.generate, middleware.AuthOptions{Role: middleware.AuthRoleFamily}))
	router.Post("/quizzes/:id/submit", middleware.WithAuth(h.submit, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
}

func (h *QuizHandler) list(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)
	studentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.policy.CanAccessStudent(c.UserContext(), actorFromContext(c), studentID); err != nil {
		return writeServiceError(c, logger, err, "failed to authorize request")
	}

	quizzes, err := h.quizzes.ListByStudent(c.UserContext(), studentID)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to list quizzes")
	}

	return utils.OK(c, quizzes, "quizzes retrieved", fiber.Map{"count": len(quizzes)})
}

func (h *QuizHandler) create(c *fiber.Ctx) error {
	studentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.QuizCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.quizzes.Create(c.UserContext(), studentID, req)
	if err != nil {
		return writeServiceError(c, requestLogger(h.logger, c), err, "failed to create quiz")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz assigned", quiz)
}

func (h *QuizHandler) generate(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)
	studentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.policy.CanAccessStudent(c.UserContext(), actorFromContext(c), studentID); err != nil {
		return writeServiceError(c, logger, err, "failed to authorize request")
	}

	var req dto.QuizGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.quizzes.Generate(c.UserContext(), studentID, req)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to generate quiz")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "quiz generated", quiz)
}

func (h *QuizHandler) submit(c *fiber.Ctx) error {
	logger := requestLogger(h.logger, c)
	quizID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.QuizSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	quiz, err := h.quizzes.Get(c.UserContext(), quizID)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to load quiz")
	}
	if err := h.policy.CanAccessStudent(c.UserContext(), actorFromContext(c), quiz.StudentID); err != nil {
		return writeServiceError(c, logger, err, "failed to authorize request")
	}

	result, err := h.quizzes.Submit(c.UserContext(), quizID, req)
	if err != nil {
		return writeServiceError(c, logger, err, "failed to submit quiz")
	}

	return utils.SendSuccess(c, "quiz submitted", result)
}

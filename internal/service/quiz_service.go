package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
	"github.com/noah-isme/studyplan-api/pkg/ai"
)

const (
	defaultQuizDifficulty    = "medium"
	defaultQuizQuestionCount = 5
)

// QuizService assigns quizzes and grades submissions.
type QuizService interface {
	Create(ctx context.Context, studentID uint, req dto.QuizCreateRequest) (dto.QuizResponse, error)
	Generate(ctx context.Context, studentID uint, req dto.QuizGenerateRequest) (dto.QuizResponse, error)
	Get(ctx context.Context, quizID uint) (models.Quiz, error)
	ListByStudent(ctx context.Context, studentID uint) ([]dto.QuizResponse, error)
	Submit(ctx context.Context, quizID uint, req dto.QuizSubmitRequest) (dto.QuizResponse, error)
}

type quizService struct {
	users     repository.UserRepository
	quizzes   repository.QuizRepository
	generator ai.QuizGenerator
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewQuizService constructs a quiz service. A nil generator disables Generate.
func NewQuizService(users repository.UserRepository, quizzes repository.QuizRepository, generator ai.QuizGenerator, validate *validator.Validate, logger zerolog.Logger) QuizService {
	return &quizService{
		users:     users,
		quizzes:   quizzes,
		generator: generator,
		validator: validate,
		logger:    logger.With().Str("component", "quiz_service").Logger(),
		now:       time.Now,
	}
}

func (s *quizService) Create(ctx context.Context, studentID uint, req dto.QuizCreateRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizResponse{}, err
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return dto.QuizResponse{}, err
	}

	quiz := models.Quiz{
		StudentID:      studentID,
		Subject:        strings.TrimSpace(req.Subject),
		Topic:          strings.TrimSpace(req.Topic),
		Status:         models.QuizStatusPending,
		TotalQuestions: len(req.Questions),
		Questions:      make([]models.QuizQuestion, 0, len(req.Questions)),
	}
	for _, input := range req.Questions {
		question := models.QuizQuestion{
			Prompt:        strings.TrimSpace(input.Prompt),
			CorrectAnswer: strings.TrimSpace(input.CorrectAnswer),
			Explanation:   strings.TrimSpace(input.Explanation),
		}
		if len(input.Options) > 0 {
			encoded, err := json.Marshal(input.Options)
			if err != nil {
				return dto.QuizResponse{}, fmt.Errorf("encode options: %w", err)
			}
			question.Options = datatypes.JSON(encoded)
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, err
	}

	s.logger.Info().Uint("quiz_id", quiz.ID).Uint("student_id", studentID).Int("questions", quiz.TotalQuestions).Msg("quiz assigned")
	return dto.NewQuizResponse(quiz), nil
}

// Generate has the model write a multiple-choice quiz and stores it as pending for the student.
// Options are stored as "A. text" and the correct answer as the option label.
func (s *quizService) Generate(ctx context.Context, studentID uint, req dto.QuizGenerateRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizResponse{}, err
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return dto.QuizResponse{}, err
	}
	if s.generator == nil {
		return dto.QuizResponse{}, ErrQuizGenerationUnavailable
	}

	request := ai.QuizRequest{
		Subject:       cleanText(req.Subject),
		Topic:         cleanText(req.Topic),
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
	}
	if request.Difficulty == "" {
		request.Difficulty = defaultQuizDifficulty
	}
	if request.QuestionCount == 0 {
		request.QuestionCount = defaultQuizQuestionCount
	}

	generated, err := s.generator.GenerateQuiz(ctx, request)
	if err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("quiz generation failed")
		return dto.QuizResponse{}, fmt.Errorf("%w: %v", ErrQuizGenerationUnavailable, err)
	}

	quiz := models.Quiz{
		StudentID: studentID,
		Subject:   request.Subject,
		Topic:     request.Topic,
		Status:    models.QuizStatusPending,
		Questions: make([]models.QuizQuestion, 0, len(generated.Questions)),
	}
	for _, item := range generated.Questions {
		options := make([]string, 0, len(item.Options))
		for _, option := range item.Options {
			options = append(options, option.Label+". "+cleanText(option.Text))
		}
		encoded, err := json.Marshal(options)
		if err != nil {
			return dto.QuizResponse{}, fmt.Errorf("encode options: %w", err)
		}
		quiz.Questions = append(quiz.Questions, models.QuizQuestion{
			Prompt:        cleanText(item.QuestionText),
			Options:       datatypes.JSON(encoded),
			CorrectAnswer: item.CorrectAnswer,
			Explanation:   cleanText(item.Explanation),
		})
	}
	quiz.TotalQuestions = len(quiz.Questions)
	if quiz.TotalQuestions == 0 {
		return dto.QuizResponse{}, ErrQuizGenerationUnavailable
	}

	if err := s.quizzes.Create(ctx, &quiz); err != nil {
		return dto.QuizResponse{}, err
	}

	s.logger.Info().
		Uint("quiz_id", quiz.ID).
		Uint("student_id", studentID).
		Str("difficulty", request.Difficulty).
		Int("questions", quiz.TotalQuestions).
		Msg("quiz generated")
	return dto.NewQuizResponse(quiz), nil
}

func (s *quizService) Get(ctx context.Context, quizID uint) (models.Quiz, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Quiz{}, ErrQuizNotFound
		}
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (s *quizService) ListByStudent(ctx context.Context, studentID uint) ([]dto.QuizResponse, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	quizzes, err := s.quizzes.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return dto.NewQuizResponseSlice(quizzes), nil
}

// Submit grades the answers. Comparison ignores case and surrounding whitespace; unanswered questions count as wrong.
func (s *quizService) Submit(ctx context.Context, quizID uint, req dto.QuizSubmitRequest) (dto.QuizResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuizResponse{}, err
	}

	quiz, err := s.Get(ctx, quizID)
	if err != nil {
		return dto.QuizResponse{}, err
	}
	if quiz.IsCompleted() {
		return dto.QuizResponse{}, ErrQuizAlreadyCompleted
	}

	answers := make(map[uint]string, len(req.Answers))
	for _, answer := range req.Answers {
		answers[answer.QuestionID] = strings.TrimSpace(answer.Answer)
	}

	correct := 0
	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		given := answers[question.ID]
		isCorrect := given != "" && strings.EqualFold(given, strings.TrimSpace(question.CorrectAnswer))
		question.StudentAnswer = given
		question.IsCorrect = &isCorrect
		if isCorrect {
			correct++
		}
	}

	total := len(quiz.Questions)
	score := 0.0
	if total > 0 {
		score = float64(correct) * 100 / float64(total)
	}
	completedAt := s.now()

	quiz.Status = models.QuizStatusCompleted
	quiz.TotalQuestions = total
	quiz.CorrectAnswers = correct
	quiz.Score = &score
	quiz.CompletedAt = &completedAt

	if err := s.quizzes.SaveResult(ctx, &quiz); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuizResponse{}, ErrQuizAlreadyCompleted
		}
		return dto.QuizResponse{}, err
	}

	s.logger.Info().
		Uint("quiz_id", quiz.ID).
		Uint("student_id", quiz.StudentID).
		Float64("score", score).
		Msg("quiz submitted")
	return dto.NewQuizResponse(quiz), nil
}

func (s *quizService) ensureStudent(ctx context.Context, studentID uint) error {
	if _, err := s.users.GetStudent(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	return nil
}

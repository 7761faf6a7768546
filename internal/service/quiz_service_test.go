package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
	"github.com/noah-isme/studyplan-api/pkg/ai"
)

func TestQuizCreateSubmitAndGrade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := seedUser(t, db, models.User{FirstName: "Esi", Email: "esi@example.com", Role: models.RoleStudent})

	svc := NewQuizService(repository.NewUserRepository(db), repository.NewQuizRepository(db), nil, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	submittedAt := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	svc.(*quizService).now = fixedClock(submittedAt)

	created, err := svc.Create(ctx, student.ID, dto.QuizCreateRequest{
		Subject: "Chemistry",
		Topic:   "Acids",
		Questions: []dto.QuizQuestionInput{
			{Prompt: "pH of water?", Options: []string{"7", "1"}, CorrectAnswer: "7"},
			{Prompt: "Symbol for sodium?", CorrectAnswer: "Na"},
			{Prompt: "Strong acid?", CorrectAnswer: "HCl"},
			{Prompt: "Base turns litmus?", CorrectAnswer: "Blue"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.QuizStatusPending, created.Status)
	require.Equal(t, 4, created.TotalQuestions)
	require.Equal(t, []string{"7", "1"}, created.Questions[0].Options)

	answers := []dto.QuizAnswer{
		{QuestionID: created.Questions[0].ID, Answer: " 7 "},
		{QuestionID: created.Questions[1].ID, Answer: "na"},
		{QuestionID: created.Questions[2].ID, Answer: "H2SO4"},
	}
	result, err := svc.Submit(ctx, created.ID, dto.QuizSubmitRequest{Answers: answers})
	require.NoError(t, err)
	require.Equal(t, models.QuizStatusCompleted, result.Status)
	require.Equal(t, 2, result.CorrectAnswers)
	require.NotNil(t, result.Score)
	require.InDelta(t, 50.0, *result.Score, 0.001)
	require.Equal(t, submittedAt, *result.CompletedAt)

	_, err = svc.Submit(ctx, created.ID, dto.QuizSubmitRequest{Answers: answers})
	require.ErrorIs(t, err, ErrQuizAlreadyCompleted)

	stored, err := repository.NewQuizRepository(db).ListCompletedSince(ctx, submittedAt.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, student.ID, stored[0].Student.ID)

	listed, err := svc.ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestQuizErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewQuizService(repository.NewUserRepository(db), repository.NewQuizRepository(db), nil, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	_, err := svc.Create(ctx, 42, dto.QuizCreateRequest{Subject: "Physics", Questions: []dto.QuizQuestionInput{{Prompt: "g?", CorrectAnswer: "9.8"}}})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.Submit(ctx, 42, dto.QuizSubmitRequest{Answers: []dto.QuizAnswer{{QuestionID: 1, Answer: "x"}}})
	require.ErrorIs(t, err, ErrQuizNotFound)

	_, err = svc.Submit(ctx, 42, dto.QuizSubmitRequest{})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

type stubQuizGenerator struct {
	quiz     ai.GeneratedQuiz
	err      error
	requests []ai.QuizRequest
}

func (g *stubQuizGenerator) GenerateQuiz(_ context.Context, req ai.QuizRequest) (ai.GeneratedQuiz, error) {
	g.requests = append(g.requests, req)
	return g.quiz, g.err
}

func TestQuizGenerateStoresPendingMultipleChoiceQuiz(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := seedUser(t, db, models.User{FirstName: "Esi", Email: "esi@example.com", Role: models.RoleStudent})
	generator := &stubQuizGenerator{quiz: ai.GeneratedQuiz{Questions: []ai.GeneratedQuestion{
		{
			QuestionText:  "Capital of <b>Ghana</b>?",
			Options:       []ai.GeneratedOption{{Label: "A", Text: "Kumasi"}, {Label: "B", Text: "Accra"}, {Label: "C", Text: "Tamale"}, {Label: "D", Text: "Ho"}},
			CorrectAnswer: "B",
			Explanation:   "Accra has been the capital since 1877.",
		},
		{
			QuestionText:  "Longest river in Africa?",
			Options:       []ai.GeneratedOption{{Label: "A", Text: "Nile"}, {Label: "B", Text: "Congo"}},
			CorrectAnswer: "A",
		},
	}}}
	svc := NewQuizService(repository.NewUserRepository(db), repository.NewQuizRepository(db), generator, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	created, err := svc.Generate(ctx, student.ID, dto.QuizGenerateRequest{Subject: " Geography ", Topic: "West Africa"})
	require.NoError(t, err)
	require.Len(t, generator.requests, 1)
	require.Equal(t, ai.QuizRequest{Subject: "Geography", Topic: "West Africa", Difficulty: "medium", QuestionCount: 5}, generator.requests[0])

	require.Equal(t, models.QuizStatusPending, created.Status)
	require.Equal(t, 2, created.TotalQuestions)
	require.Equal(t, "Capital of Ghana?", created.Questions[0].Prompt)
	require.Equal(t, []string{"A. Kumasi", "B. Accra", "C. Tamale", "D. Ho"}, created.Questions[0].Options)
	require.Empty(t, created.Questions[0].Explanation, "explanations stay hidden until the quiz is graded")

	result, err := svc.Submit(ctx, created.ID, dto.QuizSubmitRequest{Answers: []dto.QuizAnswer{
		{QuestionID: created.Questions[0].ID, Answer: "b"},
		{QuestionID: created.Questions[1].ID, Answer: "B"},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, result.CorrectAnswers)
	require.InDelta(t, 50.0, *result.Score, 0.001)
	require.Equal(t, "Accra has been the capital since 1877.", result.Questions[0].Explanation)
}

func TestQuizGenerateHonoursDifficultyAndCount(t *testing.T) {
	db := newTestDB(t)
	student := seedUser(t, db, models.User{FirstName: "Esi", Email: "esi@example.com", Role: models.RoleStudent})
	generator := &stubQuizGenerator{quiz: ai.GeneratedQuiz{Questions: []ai.GeneratedQuestion{
		{QuestionText: "2+2?", Options: []ai.GeneratedOption{{Label: "A", Text: "4"}, {Label: "B", Text: "5"}}, CorrectAnswer: "A"},
	}}}
	svc := NewQuizService(repository.NewUserRepository(db), repository.NewQuizRepository(db), generator, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	_, err := svc.Generate(context.Background(), student.ID, dto.QuizGenerateRequest{Subject: "Maths", Difficulty: "hard", QuestionCount: 12})
	require.NoError(t, err)
	require.Equal(t, "hard", generator.requests[0].Difficulty)
	require.Equal(t, 12, generator.requests[0].QuestionCount)

	_, err = svc.Generate(context.Background(), student.ID, dto.QuizGenerateRequest{Subject: "Maths", Difficulty: "impossible"})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)

	_, err = svc.Generate(context.Background(), student.ID, dto.QuizGenerateRequest{Subject: "Maths", QuestionCount: 21})
	require.ErrorAs(t, err, &validationErrs)
	require.Len(t, generator.requests, 1)
}

func TestQuizGenerateErrors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := seedUser(t, db, models.User{FirstName: "Esi", Email: "esi@example.com", Role: models.RoleStudent})
	parent := seedUser(t, db, models.User{FirstName: "Ama", Email: "ama@example.com", Role: models.RoleParent})
	users := repository.NewUserRepository(db)
	quizzes := repository.NewQuizRepository(db)
	validate := validator.New(validator.WithRequiredStructEnabled())
	req := dto.QuizGenerateRequest{Subject: "Maths"}

	unconfigured := NewQuizService(users, quizzes, nil, validate, zerolog.Nop())
	_, err := unconfigured.Generate(ctx, student.ID, req)
	require.ErrorIs(t, err, ErrQuizGenerationUnavailable)

	failing := &stubQuizGenerator{err: errors.New("upstream overloaded")}
	svc := NewQuizService(users, quizzes, failing, validate, zerolog.Nop())
	_, err = svc.Generate(ctx, student.ID, req)
	require.ErrorIs(t, err, ErrQuizGenerationUnavailable)

	_, err = svc.Generate(ctx, parent.ID, req)
	require.ErrorIs(t, err, ErrStudentNotFound)
	require.Len(t, failing.requests, 1, "unknown students never reach the generator")

	empty := NewQuizService(users, quizzes, &stubQuizGenerator{}, validate, zerolog.Nop())
	_, err = empty.Generate(ctx, student.ID, req)
	require.ErrorIs(t, err, ErrQuizGenerationUnavailable)

	listed, err := svc.ListByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Empty(t, listed)
}

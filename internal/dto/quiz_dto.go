package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// QuizQuestionInput describes a question when creating a quiz.
type QuizQuestionInput struct {
	Prompt        string   `json:"prompt" validate:"required,max=2000"`
	Options       []string `json:"options" validate:"omitempty,max=10,dive,required,max=255"`
	CorrectAnswer string   `json:"correct_answer" validate:"required,max=255"`
	Explanation   string   `json:"explanation" validate:"omitempty,max=2000"`
}

// QuizCreateRequest is the payload to assign a quiz to a student.
type QuizCreateRequest struct {
	Subject   string              `json:"subject" validate:"required,max=160"`
	Topic     string              `json:"topic" validate:"omitempty,max=255"`
	Questions []QuizQuestionInput `json:"questions" validate:"required,min=1,max=50,dive"`
}

// QuizGenerateRequest asks the model for a multiple-choice quiz. Difficulty defaults to medium and QuestionCount to 5.
type QuizGenerateRequest struct {
	Subject       string `json:"subject" validate:"required,max=160"`
	Topic         string `json:"topic" validate:"omitempty,max=255"`
	Difficulty    string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	QuestionCount int    `json:"question_count" validate:"omitempty,min=1,max=20"`
}

// QuizAnswer is one answer in a submission.
type QuizAnswer struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"max=255"`
}

// QuizSubmitRequest carries a student's answers.
type QuizSubmitRequest struct {
	Answers []QuizAnswer `json:"answers" validate:"required,min=1,dive"`
}

// QuizQuestionResponse is a question as shown to the student.
type QuizQuestionResponse struct {
	ID            uint     `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	StudentAnswer string   `json:"student_answer,omitempty"`
	IsCorrect     *bool    `json:"is_correct,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// QuizResponse is the serialized representation of a quiz.
type QuizResponse struct {
	ID             uint                   `json:"id"`
	StudentID      uint                   `json:"student_id"`
	Subject        string                 `json:"subject"`
	Topic          string                 `json:"topic,omitempty"`
	Status         string                 `json:"status"`
	TotalQuestions int                    `json:"total_questions"`
	CorrectAnswers int                    `json:"correct_answers"`
	Score          *float64               `json:"score,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	Questions      []QuizQuestionResponse `json:"questions,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// NewQuizResponse converts a quiz model into a DTO.
func NewQuizResponse(quiz models.Quiz) QuizResponse {
	questions := make([]QuizQuestionResponse, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		var options []string
		if len(question.Options) > 0 {
			_ = json.Unmarshal(question.Options, &options)
		}
		response := QuizQuestionResponse{
			ID:            question.ID,
			Prompt:        question.Prompt,
			Options:       options,
			StudentAnswer: question.StudentAnswer,
			IsCorrect:     question.IsCorrect,
		}
		// Explanations would give the answer away before grading.
		if question.IsCorrect != nil {
			response.Explanation = question.Explanation
		}
		questions = append(questions, response)
	}

	return QuizResponse{
		ID:             quiz.ID,
		StudentID:      quiz.StudentID,
		Subject:        quiz.Subject,
		Topic:          quiz.Topic,
		Status:         quiz.Status,
		TotalQuestions: quiz.TotalQuestions,
		CorrectAnswers: quiz.CorrectAnswers,
		Score:          quiz.Score,
		CompletedAt:    quiz.CompletedAt,
		Questions:      questions,
		CreatedAt:      quiz.CreatedAt,
	}
}

// NewQuizResponseSlice converts a slice of quizzes into DTOs.
func NewQuizResponseSlice(quizzes []models.Quiz) []QuizResponse {
	out := make([]QuizResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		out = append(out, NewQuizResponse(quiz))
	}
	return out
}

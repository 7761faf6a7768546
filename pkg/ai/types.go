package ai

import (
	"context"
	"encoding/json"
)

// SuggestionRequest holds the student's constraints for a weekly revision plan.
type SuggestionRequest struct {
	StudentName        string
	Subjects           []string
	Days               []string
	StartTime          string
	EndTime            string
	MaxStudyMinutes    int
	BreakMinutes       int
	PreparationMinutes int
	Preferences        map[string]interface{}
}

// ScheduleSuggester proposes a raw weekly schedule. The output shape is checked by the caller.
type ScheduleSuggester interface {
	Suggest(ctx context.Context, req SuggestionRequest) (json.RawMessage, error)
}

// QuizRequest describes a multiple-choice quiz to generate.
type QuizRequest struct {
	Subject       string
	Topic         string
	Difficulty    string
	QuestionCount int
}

// GeneratedOption is one labelled answer choice.
type GeneratedOption struct {
	Label string
	Text  string
}

// GeneratedQuestion is a multiple-choice question. CorrectAnswer holds the label of the right option.
type GeneratedQuestion struct {
	QuestionText  string
	Options       []GeneratedOption
	CorrectAnswer string
	Explanation   string
}

// GeneratedQuiz is the usable part of a model's quiz output.
type GeneratedQuiz struct {
	Questions []GeneratedQuestion
}

// QuizGenerator writes multiple-choice quizzes.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, req QuizRequest) (GeneratedQuiz, error)
}

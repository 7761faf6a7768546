package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz statuses.
const (
	QuizStatusPending   = "pending"
	QuizStatusCompleted = "completed"
)

// QuizPassingScore is the score at or above which a result is reported positively.
const QuizPassingScore = 70.0

// Quiz is a short assessment assigned to a student.
type Quiz struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	StudentID      uint           `gorm:"not null;index" json:"student_id"`
	Student        *User          `gorm:"foreignKey:StudentID" json:"-"`
	Subject        string         `gorm:"size:160;not null" json:"subject"`
	Topic          string         `gorm:"size:255" json:"topic"`
	Status         string         `gorm:"size:16;not null;default:pending;index" json:"status"`
	TotalQuestions int            `json:"total_questions"`
	CorrectAnswers int            `json:"correct_answers"`
	Score          *float64       `json:"score,omitempty"`
	CompletedAt    *time.Time     `gorm:"index" json:"completed_at,omitempty"`
	Questions      []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// QuizQuestion is a single multiple-choice or short-answer question.
type QuizQuestion struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	QuizID        uint           `gorm:"not null;index" json:"quiz_id"`
	Prompt        string         `gorm:"type:text;not null" json:"prompt"`
	Options       datatypes.JSON `gorm:"type:json" json:"options,omitempty"`
	CorrectAnswer string         `gorm:"size:255;not null" json:"-"`
	Explanation   string         `gorm:"type:text" json:"-"`
	StudentAnswer string         `gorm:"size:255" json:"student_answer,omitempty"`
	IsCorrect     *bool          `json:"is_correct,omitempty"`
}

// IsCompleted reports whether the quiz has been submitted.
func (q Quiz) IsCompleted() bool {
	return q.Status == QuizStatusCompleted
}

package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// GenerateScheduleRequest describes the constraints sent to the suggestion provider.
type GenerateScheduleRequest struct {
	Subjects        []string               `json:"subjects" validate:"required,min=1,max=20,dive,required,max=160"`
	Days            []string               `json:"days" validate:"omitempty,max=7,dive,required"`
	StartTime       string                 `json:"start_time" validate:"omitempty,len=5"`
	EndTime         string                 `json:"end_time" validate:"omitempty,len=5"`
	MaxStudyMinutes int                    `json:"max_study_minutes" validate:"omitempty,min=15,max=720"`
	BreakMinutes    int                    `json:"break_minutes" validate:"omitempty,min=0,max=120"`
	Preferences     map[string]interface{} `json:"preferences"`
}

// ImportScheduleRequest carries a caller-supplied raw schedule in any accepted shape.
type ImportScheduleRequest struct {
	Schedule json.RawMessage `json:"schedule" validate:"required"`
}

// SlotResponse is the serialized representation of a time slot.
type SlotResponse struct {
	ID              uint       `json:"id"`
	StudentID       uint       `json:"student_id"`
	Day             string     `json:"day"`
	TimeRange       string     `json:"time_range"`
	Activity        string     `json:"activity"`
	Kind            string     `json:"kind"`
	SubjectID       *uint      `json:"subject_id,omitempty"`
	Subject         string     `json:"subject,omitempty"`
	Topic           string     `json:"topic,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	SessionID       string     `json:"session_id"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	IsLate          bool       `json:"is_late"`
}

// NewSlotResponse converts a slot model into a DTO.
func NewSlotResponse(slot models.TimeSlot, late bool) SlotResponse {
	return SlotResponse{
		ID:              slot.ID,
		StudentID:       slot.StudentID,
		Day:             string(slot.Day),
		TimeRange:       slot.TimeRange,
		Activity:        slot.Activity,
		Kind:            string(slot.Kind),
		SubjectID:       slot.SubjectID,
		Subject:         slot.SubjectName(),
		Topic:           slot.Topic,
		DurationMinutes: slot.DurationMinutes,
		SessionID:       slot.SessionID,
		Completed:       slot.IsCompleted(),
		CompletedAt:     slot.CompletedAt,
		IsLate:          late,
	}
}

// DailyStats summarises completion for one day, breaks excluded.
type DailyStats struct {
	Total                int     `json:"total"`
	Completed            int     `json:"completed"`
	Remaining            int     `json:"remaining"`
	Late                 int     `json:"late"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// DailyView lists the non-break slots of a day together with its stats.
type DailyView struct {
	StudentID uint           `json:"student_id"`
	Day       string         `json:"day"`
	Slots     []SlotResponse `json:"slots"`
	Stats     DailyStats     `json:"stats"`
}

// DaySchedule is one entry of the weekly view.
type DaySchedule struct {
	Day   string         `json:"day"`
	Slots []SlotResponse `json:"slots"`
}

// WeeklyView groups a student's slots Monday..Sunday. Days without slots are omitted.
type WeeklyView struct {
	StudentID uint          `json:"student_id"`
	Days      []DaySchedule `json:"days"`
}

// ScheduleGenerationResponse reports the outcome of a generation or import.
type ScheduleGenerationResponse struct {
	SessionID   string     `json:"session_id"`
	Source      string     `json:"source"`
	SlotCount   int        `json:"slot_count"`
	GeneratedAt time.Time  `json:"generated_at"`
	Week        WeeklyView `json:"week"`
}

package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// ActivityKind classifies what a slot is used for.
type ActivityKind string

const (
	ActivityStudy ActivityKind = "study"
	ActivityBreak ActivityKind = "break"
	ActivityOther ActivityKind = "other"
)

// ClassifyActivity derives an activity kind from a free-text activity label.
func ClassifyActivity(activity string) ActivityKind {
	normalized := strings.ToLower(strings.TrimSpace(activity))
	switch {
	case normalized == "":
		return ActivityOther
	case strings.Contains(normalized, "break"), strings.Contains(normalized, "pause"):
		return ActivityBreak
	case strings.Contains(normalized, "revision"), strings.Contains(normalized, "study"):
		return ActivityStudy
	default:
		return ActivityOther
	}
}

// TimeSlot is one recurring activity block in a student's weekly schedule.
type TimeSlot struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	StudentID       uint         `gorm:"not null;index:idx_time_slots_student_day,priority:1" json:"student_id"`
	Day             Weekday      `gorm:"size:16;not null" json:"day"`
	DayOrder        int          `gorm:"not null;index:idx_time_slots_student_day,priority:2" json:"-"`
	TimeRange       string       `gorm:"column:time_range;size:16;not null" json:"time_range"`
	Activity        string       `gorm:"size:255;not null" json:"activity"`
	Kind            ActivityKind `gorm:"size:16;not null" json:"kind"`
	SubjectID       *uint        `gorm:"index" json:"subject_id,omitempty"`
	Subject         *Subject     `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	Topic           string       `gorm:"size:255" json:"topic,omitempty"`
	DurationMinutes *int         `json:"duration_minutes,omitempty"`
	SessionID       string       `gorm:"size:36;not null;index" json:"session_id"`
	GeneratedAt     time.Time    `json:"generated_at"`
	Completed       *bool        `json:"completed"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// BeforeSave keeps the derived columns and the completion invariants consistent.
func (s *TimeSlot) BeforeSave(tx *gorm.DB) error {
	s.DayOrder = s.Day.Index()
	if s.Kind == "" {
		s.Kind = ClassifyActivity(s.Activity)
	}
	if s.Kind == ActivityBreak {
		s.SubjectID = nil
		s.Subject = nil
		s.Topic = ""
	}
	if !s.IsCompleted() {
		s.CompletedAt = nil
	} else if s.CompletedAt == nil {
		now := time.Now()
		s.CompletedAt = &now
	}
	return nil
}

// IsCompleted treats a missing completion flag as not completed.
func (s TimeSlot) IsCompleted() bool {
	return s.Completed != nil && *s.Completed
}

// IsStudy reports whether the slot is a study or revision block.
func (s TimeSlot) IsStudy() bool {
	if s.Kind == ActivityStudy {
		return true
	}
	if s.Kind == ActivityBreak {
		return false
	}
	return ClassifyActivity(s.Activity) == ActivityStudy
}

// IsBreak reports whether the slot is a break.
func (s TimeSlot) IsBreak() bool {
	if s.Kind != "" {
		return s.Kind == ActivityBreak
	}
	return ClassifyActivity(s.Activity) == ActivityBreak
}

// SubjectName returns the linked subject name, if loaded.
func (s TimeSlot) SubjectName() string {
	if s.Subject == nil {
		return ""
	}
	return s.Subject.Name
}

// ParsedRange parses the stored time range.
func (s TimeSlot) ParsedRange() (TimeRange, error) {
	return ParseTimeRange(s.TimeRange)
}

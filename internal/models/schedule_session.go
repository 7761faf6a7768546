package models

import (
	"time"

	"gorm.io/datatypes"
)

// Schedule session sources.
const (
	ScheduleSourceAI     = "ai"
	ScheduleSourceManual = "manual"
)

// ScheduleSession records one generation run for a student. Its ID is the slots' session id.
type ScheduleSession struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	StudentID uint              `gorm:"not null;index" json:"student_id"`
	Source    string            `gorm:"size:16;not null" json:"source"`
	Request   datatypes.JSONMap `gorm:"type:json" json:"request,omitempty"`
	SlotCount int               `json:"slot_count"`
	CreatedAt time.Time         `json:"created_at"`
}

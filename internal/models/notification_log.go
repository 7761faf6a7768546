package models

import "time"

// Delivery outcomes recorded for each notification attempt.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// NotificationLog records one notification email attempted for a student.
type NotificationLog struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	StudentID uint       `gorm:"not null;index" json:"student_id"`
	CheckName string     `gorm:"size:32;not null;index" json:"check"`
	TargetID  string     `gorm:"size:64" json:"target_id"`
	Recipient string     `gorm:"size:16;not null" json:"recipient"`
	Email     string     `gorm:"size:255" json:"-"`
	Subject   string     `gorm:"size:255" json:"subject"`
	Status    string     `gorm:"size:16;not null" json:"status"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

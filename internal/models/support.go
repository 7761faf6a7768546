package models

import "time"

// Ticket statuses. An admin reply moves an open ticket to in_progress.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// TicketStatuses lists the valid ticket statuses.
func TicketStatuses() []string {
	return []string{TicketOpen, TicketInProgress, TicketResolved, TicketClosed}
}

// SupportTicket is a help request raised by a student or parent.
type SupportTicket struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	ReferenceID string           `gorm:"size:64;uniqueIndex" json:"reference_id"`
	Subject     string           `gorm:"size:255;not null" json:"subject"`
	Description string           `gorm:"type:text;not null" json:"description"`
	Status      string           `gorm:"size:16;not null;default:open;index" json:"status"`
	Priority    string           `gorm:"size:16;not null;default:medium" json:"priority"`
	CreatedByID uint             `gorm:"not null;index" json:"created_by_id"`
	CreatedBy   *User            `gorm:"foreignKey:CreatedByID" json:"-"`
	Checksum    string           `gorm:"size:128;index" json:"-"`
	Messages    []SupportMessage `gorm:"foreignKey:TicketID" json:"messages,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// SupportMessage is one message in a ticket conversation.
type SupportMessage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TicketID     uint      `gorm:"not null;index" json:"ticket_id"`
	SenderID     uint      `gorm:"not null" json:"sender_id"`
	Sender       *User     `gorm:"foreignKey:SenderID" json:"-"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	IsAdminReply bool      `gorm:"not null;default:false" json:"is_admin_reply"`
	CreatedAt    time.Time `json:"created_at"`
}

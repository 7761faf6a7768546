package dto

import "time"

// SupportTicketCreateRequest opens a support ticket.
type SupportTicketCreateRequest struct {
	Subject     string `json:"subject" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=5000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// SupportMessageRequest adds a message to a ticket.
type SupportMessageRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

// SupportTicketUpdateRequest changes status or priority of a ticket.
type SupportTicketUpdateRequest struct {
	Status   *string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// SupportTicketListRequest filters ticket listings.
type SupportTicketListRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// SupportMessageResponse is one message of a ticket conversation.
type SupportMessageResponse struct {
	ID           uint      `json:"id"`
	TicketID     uint      `json:"ticket_id"`
	SenderID     uint      `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	Message      string    `json:"message"`
	IsAdminReply bool      `json:"is_admin_reply"`
	CreatedAt    time.Time `json:"created_at"`
}

// SupportTicketResponse is the serialized representation of a ticket.
type SupportTicketResponse struct {
	ID             uint                     `json:"id"`
	ReferenceID    string                   `json:"reference_id"`
	Subject        string                   `json:"subject"`
	Description    string                   `json:"description"`
	Status         string                   `json:"status"`
	Priority       string                   `json:"priority"`
	CreatedByID    uint                     `json:"created_by_id"`
	CreatedByName  string                   `json:"created_by_name"`
	CreatedByEmail string                   `json:"created_by_email"`
	MessageCount   int                      `json:"message_count"`
	Messages       []SupportMessageResponse `json:"messages,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// SupportTicketListResponse is a page of tickets.
type SupportTicketListResponse struct {
	Items      []SupportTicketResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

// SupportStatistics counts tickets per status.
type SupportStatistics struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
}

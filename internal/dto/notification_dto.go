package dto

import "time"

// CheckReport summarises one run of a notification check.
type CheckReport struct {
	Check      string        `json:"check"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Evaluated  int           `json:"evaluated"`
	Dispatched int           `json:"dispatched"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Error      string        `json:"error,omitempty"`
}

// NotificationEvent describes a dispatched notification for downstream consumers.
type NotificationEvent struct {
	Check     string    `json:"check"`
	StudentID uint      `json:"student_id"`
	TargetID  string    `json:"target_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	FiredAt   time.Time `json:"fired_at"`
}

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NotificationLogResponse is one entry of a student's notification history.
type NotificationLogResponse struct {
	ID        uint       `json:"id"`
	StudentID uint       `json:"student_id"`
	Check     string     `json:"check"`
	Recipient string     `json:"recipient"`
	Email     string     `json:"email"`
	Subject   string     `json:"subject"`
	Status    string     `json:"status"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NotificationHistoryResponse is a page of notification history.
type NotificationHistoryResponse struct {
	Items      []NotificationLogResponse `json:"items"`
	Pagination PaginationMeta            `json:"pagination"`
}

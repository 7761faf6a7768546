package dto

import (
	"time"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// UserCreateRequest is the payload an administrator uses to create an account.
type UserCreateRequest struct {
	FirstName          string `json:"first_name" validate:"required,max=120"`
	LastName           string `json:"last_name" validate:"omitempty,max=120"`
	Email              string `json:"email" validate:"required,email,max=255"`
	Password           string `json:"password" validate:"required,min=8,max=72"`
	Role               string `json:"role" validate:"required,oneof=student parent admin"`
	ParentID           *uint  `json:"parent_id" validate:"omitempty,min=1"`
	MaxStudyMinutes    int    `json:"max_study_minutes" validate:"omitempty,min=0,max=720"`
	PreparationMinutes int    `json:"preparation_minutes" validate:"omitempty,min=0,max=240"`
}

// LinkParentRequest links or unlinks a student's parent.
type LinkParentRequest struct {
	ParentID *uint `json:"parent_id" validate:"omitempty,min=1"`
}

// UserResponse is the serialized representation of an account.
type UserResponse struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ParentID  *uint     `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse converts a user model into a DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      string(user.Role),
		ParentID:  user.ParentID,
		CreatedAt: user.CreatedAt,
	}
}

// ChildOverview is a parent's view of one linked child.
type ChildOverview struct {
	Student UserResponse `json:"student"`
	Day     string       `json:"day"`
	Today   DailyStats   `json:"today"`
}

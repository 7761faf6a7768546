package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role tags which variant of account a user is.
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleAdmin   Role = "admin"
)

// ParseRole resolves a case-insensitive role name.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleParent:
		return RoleParent, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// User is an account. Student-only columns are ignored for other roles.
type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	FirstName          string    `gorm:"size:120;not null" json:"first_name"`
	LastName           string    `gorm:"size:120" json:"last_name"`
	Email              string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash       string    `gorm:"size:255" json:"-"`
	Role               Role      `gorm:"size:16;not null;index" json:"role"`
	ParentID           *uint     `gorm:"index" json:"parent_id,omitempty"`
	Parent             *User     `gorm:"foreignKey:ParentID" json:"-"`
	MaxStudyMinutes    int       `json:"max_study_minutes,omitempty"`
	PreparationMinutes int       `json:"preparation_minutes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// StudentView exposes the student-specific capabilities of a user.
type StudentView struct {
	User
}

// ParentView exposes the parent-specific capabilities of a user.
type ParentView struct {
	User
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AsStudent returns the student view when the user is a student.
func (u User) AsStudent() (StudentView, bool) {
	if u.Role != RoleStudent {
		return StudentView{}, false
	}
	return StudentView{User: u}, true
}

// AsParent returns the parent view when the user is a parent.
func (u User) AsParent() (ParentView, bool) {
	if u.Role != RoleParent {
		return ParentView{}, false
	}
	return ParentView{User: u}, true
}

// LinkedParent returns the loaded parent of a student, if any.
func (s StudentView) LinkedParent() (ParentView, bool) {
	if s.Parent == nil {
		return ParentView{}, false
	}
	return s.Parent.AsParent()
}

// SetPassword stores a bcrypt hash of the plain password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares a plain password against the stored hash.
func (u User) CheckPassword(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

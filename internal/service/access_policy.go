package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   uint
	Role models.Role
}

// AccessPolicy decides whether an actor may read or change a student's data.
type AccessPolicy interface {
	CanAccessStudent(ctx context.Context, actor Actor, studentID uint) error
}

type accessPolicy struct {
	users repository.UserRepository
}

// NewAccessPolicy constructs the policy. Admins see everyone, students themselves, parents their linked children.
func NewAccessPolicy(users repository.UserRepository) AccessPolicy {
	return &accessPolicy{users: users}
}

func (p *accessPolicy) CanAccessStudent(ctx context.Context, actor Actor, studentID uint) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		if actor.ID == studentID {
			return nil
		}
		return ErrForbidden
	case models.RoleParent:
		student, err := p.users.GetStudent(ctx, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return err
		}
		if student.ParentID != nil && *student.ParentID == actor.ID {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

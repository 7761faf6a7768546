package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
)

// UserService manages accounts and parent links.
type UserService interface {
	Create(ctx context.Context, req dto.UserCreateRequest) (dto.UserResponse, error)
	Get(ctx context.Context, id uint) (models.User, error)
	LinkParent(ctx context.Context, studentID uint, parentID *uint) (dto.UserResponse, error)
	Children(ctx context.Context, parentID uint) ([]dto.ChildOverview, error)
}

type userService struct {
	users     repository.UserRepository
	tracker   CompletionTracker
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs a user service.
func NewUserService(users repository.UserRepository, tracker CompletionTracker, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		tracker:   tracker,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, req dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return dto.UserResponse{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	role, _ := models.ParseRole(req.Role)
	user := models.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Role:      role,
	}
	if role == models.RoleStudent {
		user.MaxStudyMinutes = req.MaxStudyMinutes
		user.PreparationMinutes = req.PreparationMinutes
		if req.ParentID != nil {
			if err := s.ensureParent(ctx, *req.ParentID); err != nil {
				return dto.UserResponse{}, err
			}
			user.ParentID = req.ParentID
		}
	}
	if err := user.SetPassword(req.Password); err != nil {
		return dto.UserResponse{}, err
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("account created")
	return dto.NewUserResponse(user), nil
}

func (s *userService) Get(ctx context.Context, id uint) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrStudentNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// LinkParent sets or clears (nil parentID) the parent of a student.
func (s *userService) LinkParent(ctx context.Context, studentID uint, parentID *uint) (dto.UserResponse, error) {
	if parentID != nil {
		if err := s.ensureParent(ctx, *parentID); err != nil {
			return dto.UserResponse{}, err
		}
	}

	if err := s.users.SetParent(ctx, studentID, parentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrStudentNotFound
		}
		return dto.UserResponse{}, err
	}

	student, err := s.users.GetStudent(ctx, studentID)
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("student_id", studentID).Interface("parent_id", parentID).Msg("parent link updated")
	return dto.NewUserResponse(student), nil
}

func (s *userService) Children(ctx context.Context, parentID uint) ([]dto.ChildOverview, error) {
	if err := s.ensureParent(ctx, parentID); err != nil {
		return nil, err
	}

	children, err := s.users.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}

	today := s.tracker.Today()
	out := make([]dto.ChildOverview, 0, len(children))
	for _, child := range children {
		stats, err := s.tracker.DailyStats(ctx, child.ID, today)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.ChildOverview{
			Student: dto.NewUserResponse(child),
			Day:     string(today),
			Today:   stats,
		})
	}
	return out, nil
}

func (s *userService) ensureParent(ctx context.Context, parentID uint) error {
	parent, err := s.users.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParentNotFound
		}
		return err
	}
	if _, ok := parent.AsParent(); !ok {
		return ErrParentNotFound
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
	"github.com/noah-isme/studyplan-api/pkg/mailer"
)

// NotificationHistoryService exposes the notifications sent about a student.
type NotificationHistoryService interface {
	List(ctx context.Context, studentID uint, page, pageSize int) (dto.NotificationHistoryResponse, error)
	Get(ctx context.Context, id uint) (models.NotificationLog, error)
	MarkRead(ctx context.Context, id uint) (dto.NotificationLogResponse, error)
}

type notificationHistoryService struct {
	history repository.NotificationLogRepository
	logger  zerolog.Logger
	now     func() time.Time
}

// NewNotificationHistoryService constructs the history service.
func NewNotificationHistoryService(history repository.NotificationLogRepository, logger zerolog.Logger) NotificationHistoryService {
	return &notificationHistoryService{
		history: history,
		logger:  logger.With().Str("component", "notification_history").Logger(),
		now:     time.Now,
	}
}

func (s *notificationHistoryService) List(ctx context.Context, studentID uint, page, pageSize int) (dto.NotificationHistoryResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	entries, total, err := s.history.ListByStudent(ctx, studentID, pageSize, (page-1)*pageSize)
	if err != nil {
		return dto.NotificationHistoryResponse{}, err
	}

	items := make([]dto.NotificationLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, newNotificationLogResponse(entry))
	}

	return dto.NotificationHistoryResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	}, nil
}

func (s *notificationHistoryService) Get(ctx context.Context, id uint) (models.NotificationLog, error) {
	entry, err := s.history.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NotificationLog{}, ErrNotificationNotFound
	}
	return entry, err
}

func (s *notificationHistoryService) MarkRead(ctx context.Context, id uint) (dto.NotificationLogResponse, error) {
	entry, err := s.history.MarkRead(ctx, id, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.NotificationLogResponse{}, ErrNotificationNotFound
	}
	if err != nil {
		return dto.NotificationLogResponse{}, err
	}
	return newNotificationLogResponse(entry), nil
}

func newNotificationLogResponse(entry models.NotificationLog) dto.NotificationLogResponse {
	return dto.NotificationLogResponse{
		ID:        entry.ID,
		StudentID: entry.StudentID,
		Check:     entry.CheckName,
		Recipient: entry.Recipient,
		Email:     mailer.MaskAddress(entry.Email),
		Subject:   entry.Subject,
		Status:    entry.Status,
		ReadAt:    entry.ReadAt,
		CreatedAt: entry.CreatedAt,
	}
}

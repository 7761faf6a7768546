package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// NotificationLogRepository persists the history of notification attempts.
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
	ListByStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.NotificationLog, int64, error)
	FindByID(ctx context.Context, id uint) (models.NotificationLog, error)
	MarkRead(ctx context.Context, id uint, at time.Time) (models.NotificationLog, error)
}

type notificationLogRepository struct {
	db *gorm.DB
}

// NewNotificationLogRepository constructs a repository backed by GORM.
func NewNotificationLogRepository(db *gorm.DB) NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

func (r *notificationLogRepository) Create(ctx context.Context, entry *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *notificationLogRepository) ListByStudent(ctx context.Context, studentID uint, limit, offset int) ([]models.NotificationLog, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.NotificationLog{}).Where("student_id = ?", studentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.NotificationLog
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *notificationLogRepository) FindByID(ctx context.Context, id uint) (models.NotificationLog, error) {
	var entry models.NotificationLog
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return models.NotificationLog{}, err
	}
	return entry, nil
}

// MarkRead stamps the entry once; later calls return it unchanged.
func (r *notificationLogRepository) MarkRead(ctx context.Context, id uint, at time.Time) (models.NotificationLog, error) {
	entry, err := r.FindByID(ctx, id)
	if err != nil {
		return models.NotificationLog{}, err
	}
	if entry.ReadAt != nil {
		return entry, nil
	}

	stamp := at.UTC()
	if err := r.db.WithContext(ctx).Model(&entry).Update("read_at", stamp).Error; err != nil {
		return models.NotificationLog{}, err
	}
	entry.ReadAt = &stamp
	return entry, nil
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// SupportTicketFilter narrows ticket listings. Zero values are ignored.
type SupportTicketFilter struct {
	CreatedByID uint
	Status      string
	Page        int
	PageSize    int
}

// SupportRepository persists support tickets and their conversations.
type SupportRepository interface {
	Create(ctx context.Context, ticket *models.SupportTicket) error
	GetByID(ctx context.Context, id uint) (models.SupportTicket, error)
	List(ctx context.Context, filter SupportTicketFilter) ([]models.SupportTicket, int64, error)
	AddMessage(ctx context.Context, message *models.SupportMessage, status string) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) (models.SupportTicket, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	ExistsRecent(ctx context.Context, checksum string, since time.Time) (bool, error)
}

type supportRepository struct {
	db *gorm.DB
}

// NewSupportRepository constructs a repository backed by GORM.
func NewSupportRepository(db *gorm.DB) SupportRepository {
	return &supportRepository{db: db}
}

func (r *supportRepository) Create(ctx context.Context, ticket *models.SupportTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *supportRepository) GetByID(ctx context.Context, id uint) (models.SupportTicket, error) {
	var ticket models.SupportTicket
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Messages.Sender").
		First(&ticket, id).Error
	if err != nil {
		return models.SupportTicket{}, err
	}
	return ticket, nil
}

func (r *supportRepository) List(ctx context.Context, filter SupportTicketFilter) ([]models.SupportTicket, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SupportTicket{})
	if filter.CreatedByID != 0 {
		query = query.Where("created_by_id = ?", filter.CreatedByID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	var tickets []models.SupportTicket
	if err := query.
		Preload("CreatedBy").
		Order("updated_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tickets).Error; err != nil {
		return nil, 0, err
	}

	return tickets, total, nil
}

// AddMessage stores the message and bumps the ticket, switching its status when status is not empty.
func (r *supportRepository) AddMessage(ctx context.Context, message *models.SupportMessage, status string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"updated_at": time.Now().UTC()}
		if status != "" {
			updates["status"] = status
		}
		result := tx.Model(&models.SupportTicket{}).Where("id = ?", message.TicketID).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *supportRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (models.SupportTicket, error) {
	result := r.db.WithContext(ctx).Model(&models.SupportTicket{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return models.SupportTicket{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.SupportTicket{}, gorm.ErrRecordNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *supportRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.SupportTicket{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *supportRepository) ExistsRecent(ctx context.Context, checksum string, since time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SupportTicket{}).
		Where("checksum = ? AND created_at >= ?", checksum, since).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

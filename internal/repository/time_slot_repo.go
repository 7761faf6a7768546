package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

const slotInsertBatchSize = 100

// TimeSlotRepository is the schedule store.
type TimeSlotRepository interface {
	// FindByStudentAndDay returns the day's slots ordered by time range ascending.
	FindByStudentAndDay(ctx context.Context, studentID uint, day models.Weekday) ([]models.TimeSlot, error)
	// FindUncompletedByStudentAndDay treats a NULL completion flag as not completed.
	FindUncompletedByStudentAndDay(ctx context.Context, studentID uint, day models.Weekday) ([]models.TimeSlot, error)
	// FindAllByStudent returns every slot ordered by (day, time range).
	FindAllByStudent(ctx context.Context, studentID uint) ([]models.TimeSlot, error)
	GetByID(ctx context.Context, id uint) (models.TimeSlot, error)
	// ReplaceAll discards the student's slots and sessions and inserts the batch under session.ID.
	ReplaceAll(ctx context.Context, studentID uint, session *models.ScheduleSession, slots []models.TimeSlot) error
	SetCompletion(ctx context.Context, slotID uint, completed bool, completedAt *time.Time) (models.TimeSlot, error)
	DeleteByStudent(ctx context.Context, studentID uint) (int64, error)
}

type timeSlotRepository struct {
	db *gorm.DB
}

// NewTimeSlotRepository constructs the GORM backed schedule store.
func NewTimeSlotRepository(db *gorm.DB) TimeSlotRepository {
	return &timeSlotRepository{db: db}
}

func (r *timeSlotRepository) FindByStudentAndDay(ctx context.Context, studentID uint, day models.Weekday) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("student_id = ? AND day = ?", studentID, day).
		Order("time_range ASC, id ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timeSlotRepository) FindUncompletedByStudentAndDay(ctx context.Context, studentID uint, day models.Weekday) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("student_id = ? AND day = ?", studentID, day).
		Where("completed IS NULL OR completed = ?", false).
		Order("time_range ASC, id ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timeSlotRepository) FindAllByStudent(ctx context.Context, studentID uint) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	err := r.db.WithContext(ctx).
		Preload("Subject").
		Where("student_id = ?", studentID).
		Order("day_order ASC, time_range ASC, id ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timeSlotRepository) GetByID(ctx context.Context, id uint) (models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := r.db.WithContext(ctx).Preload("Subject").First(&slot, id).Error; err != nil {
		return models.TimeSlot{}, err
	}
	return slot, nil
}

func (r *timeSlotRepository) ReplaceAll(ctx context.Context, studentID uint, session *models.ScheduleSession, slots []models.TimeSlot) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.StudentID = studentID
	session.SlotCount = len(slots)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", studentID).Delete(&models.TimeSlot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ?", studentID).Delete(&models.ScheduleSession{}).Error; err != nil {
			return err
		}
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}

		for idx := range slots {
			slots[idx].ID = 0
			slots[idx].StudentID = studentID
			slots[idx].SessionID = session.ID
			if slots[idx].GeneratedAt.IsZero() {
				slots[idx].GeneratedAt = session.CreatedAt
			}
		}

		return tx.Omit("Subject").CreateInBatches(&slots, slotInsertBatchSize).Error
	})
}

func (r *timeSlotRepository) SetCompletion(ctx context.Context, slotID uint, completed bool, completedAt *time.Time) (models.TimeSlot, error) {
	if !completed {
		completedAt = nil
	}

	var slot models.TimeSlot
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.TimeSlot{}).
			Where("id = ?", slotID).
			Updates(map[string]interface{}{
				"completed":    completed,
				"completed_at": completedAt,
				"updated_at":   time.Now(),
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Preload("Subject").First(&slot, slotID).Error
	})
	if err != nil {
		return models.TimeSlot{}, err
	}

	return slot, nil
}

func (r *timeSlotRepository) DeleteByStudent(ctx context.Context, studentID uint) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("student_id = ?", studentID).Delete(&models.TimeSlot{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return tx.Where("student_id = ?", studentID).Delete(&models.ScheduleSession{}).Error
	})
	return removed, err
}

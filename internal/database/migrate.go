package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// Migrate creates or updates the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Subject{},
		&models.ScheduleSession{},
		&models.TimeSlot{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.NotificationLog{},
		&models.SupportTicket{},
		&models.SupportMessage{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

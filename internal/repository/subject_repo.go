package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// SubjectRepository manages the subject catalogue.
type SubjectRepository interface {
	FindOrCreate(ctx context.Context, name string) (models.Subject, error)
}

type subjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository constructs a subject repository.
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepository{db: db}
}

func (r *subjectRepository) FindOrCreate(ctx context.Context, name string) (models.Subject, error) {
	subject := models.Subject{}
	err := r.db.WithContext(ctx).
		Where(models.Subject{Name: strings.TrimSpace(name)}).
		FirstOrCreate(&subject).Error
	if err != nil {
		return models.Subject{}, err
	}
	return subject, nil
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// QuizRepository persists quizzes and their questions.
type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id uint) (models.Quiz, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Quiz, error)
	// ListCompletedSince returns scored quizzes completed after since, with Student.Parent loaded.
	ListCompletedSince(ctx context.Context, since time.Time) ([]models.Quiz, error)
	SaveResult(ctx context.Context, quiz *models.Quiz) error
}

type quizRepository struct {
	db *gorm.DB
}

// NewQuizRepository constructs a quiz repository.
func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *quizRepository) GetByID(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&quiz, id).Error
	if err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *quizRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC, id DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *quizRepository) ListCompletedSince(ctx context.Context, since time.Time) ([]models.Quiz, error) {
	var quizzes []models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Student.Parent").
		Where("status = ? AND score IS NOT NULL AND completed_at > ?", models.QuizStatusCompleted, since).
		Order("completed_at ASC, id ASC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *quizRepository) SaveResult(ctx context.Context, quiz *models.Quiz) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, question := range quiz.Questions {
			err := tx.Model(&models.QuizQuestion{}).
				Where("id = ? AND quiz_id = ?", question.ID, quiz.ID).
				Updates(map[string]interface{}{
					"student_answer": question.StudentAnswer,
					"is_correct":     question.IsCorrect,
				}).Error
			if err != nil {
				return err
			}
		}

		update := tx.Model(&models.Quiz{}).
			Where("id = ? AND status <> ?", quiz.ID, models.QuizStatusCompleted).
			Updates(map[string]interface{}{
				"status":          quiz.Status,
				"correct_answers": quiz.CorrectAnswers,
				"score":           quiz.Score,
				"completed_at":    quiz.CompletedAt,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

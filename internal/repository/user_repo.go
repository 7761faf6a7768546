package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// UserRepository provides access to student, parent and admin accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetStudent(ctx context.Context, id uint) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	ListStudents(ctx context.Context) ([]models.User, error)
	ListChildren(ctx context.Context, parentID uint) ([]models.User, error)
	SetParent(ctx context.Context, studentID uint, parentID *uint) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Parent").First(&user, id).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

// GetStudent returns gorm.ErrRecordNotFound when the id does not belong to a student.
func (r *userRepository) GetStudent(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Parent").
		Where("role = ?", models.RoleStudent).
		First(&user, id).Error
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (r *userRepository) ListStudents(ctx context.Context) ([]models.User, error) {
	var students []models.User
	err := r.db.WithContext(ctx).
		Preload("Parent").
		Where("role = ?", models.RoleStudent).
		Order("id ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}

	return students, nil
}

func (r *userRepository) ListChildren(ctx context.Context, parentID uint) ([]models.User, error) {
	var children []models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND parent_id = ?", models.RoleStudent, parentID).
		Order("first_name ASC, id ASC").
		Find(&children).Error
	if err != nil {
		return nil, err
	}

	return children, nil
}

func (r *userRepository) SetParent(ctx context.Context, studentID uint, parentID *uint) error {
	update := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND role = ?", studentID, models.RoleStudent).
		Update("parent_id", parentID)
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	update := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

func TestTimeSlotRepositoryReplaceAllKeepsOnlyNewBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimeSlotRepository(db)
	ctx := context.Background()
	student := createStudent(t, db, "kofi@example.com")
	other := createStudent(t, db, "esi@example.com")

	first := &models.ScheduleSession{Source: models.ScheduleSourceAI}
	require.NoError(t, repo.ReplaceAll(ctx, student.ID, first, []models.TimeSlot{
		{Day: models.Monday, TimeRange: "18:00-18:50", Activity: "Revision"},
		{Day: models.Tuesday, TimeRange: "18:00-18:50", Activity: "Revision"},
	}))
	require.NoError(t, repo.ReplaceAll(ctx, other.ID, &models.ScheduleSession{Source: models.ScheduleSourceAI}, []models.TimeSlot{
		{Day: models.Monday, TimeRange: "08:00-09:00", Activity: "Revision"},
	}))

	second := &models.ScheduleSession{Source: models.ScheduleSourceManual}
	require.NoError(t, repo.ReplaceAll(ctx, student.ID, second, []models.TimeSlot{
		{Day: models.Friday, TimeRange: "17:00-17:30", Activity: "Study"},
	}))
	require.NotEmpty(t, second.ID)
	require.NotEqual(t, first.ID, second.ID)

	slots, err := repo.FindAllByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, second.ID, slots[0].SessionID)
	require.Equal(t, models.Friday, slots[0].Day)

	var sessions int64
	require.NoError(t, db.Model(&models.ScheduleSession{}).Where("student_id = ?", student.ID).Count(&sessions).Error)
	require.Equal(t, int64(1), sessions)

	otherSlots, err := repo.FindAllByStudent(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, otherSlots, 1, "other students are untouched")
}

func TestTimeSlotRepositoryOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimeSlotRepository(db)
	ctx := context.Background()
	student := createStudent(t, db, "kofi@example.com")

	require.NoError(t, repo.ReplaceAll(ctx, student.ID, &models.ScheduleSession{Source: models.ScheduleSourceAI}, []models.TimeSlot{
		{Day: models.Sunday, TimeRange: "10:00-11:00", Activity: "Revision"},
		{Day: models.Monday, TimeRange: "19:00-19:30", Activity: "Revision"},
		{Day: models.Monday, TimeRange: "08:00-08:45", Activity: "Revision"},
		{Day: models.Wednesday, TimeRange: "09:00-09:10", Activity: "Break"},
	}))

	slots, err := repo.FindAllByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	require.Equal(t, "08:00-08:45", slots[0].TimeRange)
	require.Equal(t, "19:00-19:30", slots[1].TimeRange)
	require.Equal(t, models.Wednesday, slots[2].Day)
	require.Equal(t, models.ActivityBreak, slots[2].Kind)
	require.Equal(t, models.Sunday, slots[3].Day)

	monday, err := repo.FindByStudentAndDay(ctx, student.ID, models.Monday)
	require.NoError(t, err)
	require.Len(t, monday, 2)
	require.Equal(t, "08:00-08:45", monday[0].TimeRange)
}

func TestTimeSlotRepositoryCompletion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimeSlotRepository(db)
	ctx := context.Background()
	student := createStudent(t, db, "kofi@example.com")

	require.NoError(t, repo.ReplaceAll(ctx, student.ID, &models.ScheduleSession{Source: models.ScheduleSourceAI}, []models.TimeSlot{
		{Day: models.Monday, TimeRange: "08:00-08:45", Activity: "Revision"},
		{Day: models.Monday, TimeRange: "09:00-09:45", Activity: "Revision"},
	}))
	// Rows written by older clients may carry NULL completion flags.
	require.NoError(t, db.Model(&models.TimeSlot{}).Where("student_id = ?", student.ID).Update("completed", nil).Error)

	slots, err := repo.FindUncompletedByStudentAndDay(ctx, student.ID, models.Monday)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	stamp := time.Date(2024, time.March, 4, 8, 40, 0, 0, time.UTC)
	updated, err := repo.SetCompletion(ctx, slots[0].ID, true, &stamp)
	require.NoError(t, err)
	require.True(t, updated.IsCompleted())
	require.NotNil(t, updated.CompletedAt)

	slots, err = repo.FindUncompletedByStudentAndDay(ctx, student.ID, models.Monday)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, "09:00-09:45", slots[0].TimeRange)

	reverted, err := repo.SetCompletion(ctx, updated.ID, false, &stamp)
	require.NoError(t, err)
	require.False(t, reverted.IsCompleted())
	require.Nil(t, reverted.CompletedAt)

	_, err = repo.SetCompletion(ctx, 9999, true, &stamp)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	removed, err := repo.DeleteByStudent(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)
}

func TestQuizRepositoryListCompletedSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuizRepository(db)
	ctx := context.Background()

	parent := models.User{FirstName: "Ama", Email: "ama@example.com", Role: models.RoleParent}
	require.NoError(t, db.Create(&parent).Error)
	student := createStudent(t, db, "kofi@example.com")
	require.NoError(t, db.Model(&student).Update("parent_id", parent.ID).Error)

	now := time.Now()
	recent := now.Add(-30 * time.Minute)
	stale := now.Add(-3 * time.Hour)
	score := 82.5

	require.NoError(t, repo.Create(ctx, &models.Quiz{StudentID: student.ID, Subject: "Maths", Status: models.QuizStatusCompleted, Score: &score, CompletedAt: &recent}))
	require.NoError(t, repo.Create(ctx, &models.Quiz{StudentID: student.ID, Subject: "Physics", Status: models.QuizStatusCompleted, Score: &score, CompletedAt: &stale}))
	require.NoError(t, repo.Create(ctx, &models.Quiz{StudentID: student.ID, Subject: "Biology", Status: models.QuizStatusPending}))

	quizzes, err := repo.ListCompletedSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	require.Equal(t, "Maths", quizzes[0].Subject)
	require.NotNil(t, quizzes[0].Student)
	require.NotNil(t, quizzes[0].Student.Parent)
	require.Equal(t, "ama@example.com", quizzes[0].Student.Parent.Email)
}

func TestSubjectRepositoryFindOrCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubjectRepository(db)

	first, err := repo.FindOrCreate(context.Background(), " Chemistry ")
	require.NoError(t, err)
	second, err := repo.FindOrCreate(context.Background(), "Chemistry")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func createStudent(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	student := models.User{FirstName: "Student", Email: email, Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Subject{},
		&models.ScheduleSession{},
		&models.TimeSlot{},
		&models.Quiz{},
		&models.QuizQuestion{},
	))
	return db
}

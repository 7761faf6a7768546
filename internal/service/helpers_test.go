package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
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
		&models.NotificationLog{},
		&models.SupportTicket{},
		&models.SupportMessage{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, user models.User) models.User {
	t.Helper()
	if user.FirstName == "" {
		user.FirstName = "Test"
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedSlot(t *testing.T, db *gorm.DB, studentID uint, day models.Weekday, window, activity string, completed bool) models.TimeSlot {
	t.Helper()
	done := completed
	slot := models.TimeSlot{
		StudentID: studentID,
		Day:       day,
		TimeRange: window,
		Activity:  activity,
		Completed: &done,
	}
	require.NoError(t, db.Create(&slot).Error)
	return slot
}

func boolPtr(value bool) *bool {
	return &value
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingDispatcher struct {
	mu     sync.Mutex
	sent   []sentMail
	reject map[string]bool
}

func (d *recordingDispatcher) Send(_ context.Context, to, subject, body string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reject[to] {
		return false
	}
	d.sent = append(d.sent, sentMail{To: to, Subject: subject, Body: body})
	return true
}

func (d *recordingDispatcher) messages() []sentMail {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sentMail, len(d.sent))
	copy(out, d.sent)
	return out
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func uintString(value uint) string {
	return strconv.FormatUint(uint64(value), 10)
}

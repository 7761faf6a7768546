package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
)

func TestIsLateUsesGracePeriod(t *testing.T) {
	tracker := NewCompletionTracker(nil, nil, nil, 0, time.UTC, zerolog.Nop())
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	slotAt := func(hour, minute int) models.TimeSlot {
		completedAt := day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
		return models.TimeSlot{
			TimeRange:   "18:00-18:30",
			Completed:   boolPtr(true),
			CompletedAt: &completedAt,
		}
	}

	require.True(t, tracker.IsLate(slotAt(18, 37)))
	require.False(t, tracker.IsLate(slotAt(18, 34)))
	require.False(t, tracker.IsLate(slotAt(18, 35)), "exactly at the grace boundary is on time")
	require.False(t, tracker.IsLate(slotAt(17, 50)))
}

func TestIsLateNeverFailsOnBadData(t *testing.T) {
	tracker := NewCompletionTracker(nil, nil, nil, 0, time.UTC, zerolog.Nop())
	late := time.Date(2024, 3, 4, 23, 59, 0, 0, time.UTC)

	require.False(t, tracker.IsLate(models.TimeSlot{TimeRange: "18:00-18:30"}))
	require.False(t, tracker.IsLate(models.TimeSlot{TimeRange: "18:00-18:30", Completed: boolPtr(false), CompletedAt: &late}))
	require.False(t, tracker.IsLate(models.TimeSlot{TimeRange: "whenever", Completed: boolPtr(true), CompletedAt: &late}))
}

func TestIsLateComparesInConfiguredLocation(t *testing.T) {
	location := time.FixedZone("UTC+2", 2*60*60)
	tracker := NewCompletionTracker(nil, nil, nil, 0, location, zerolog.Nop())

	// 16:32 UTC is 18:32 local, inside the grace window of an 18:30 end.
	completedAt := time.Date(2024, 3, 4, 16, 32, 0, 0, time.UTC)
	slot := models.TimeSlot{TimeRange: "18:00-18:30", Completed: boolPtr(true), CompletedAt: &completedAt}
	require.False(t, tracker.IsLate(slot))

	completedAt = time.Date(2024, 3, 4, 16, 40, 0, 0, time.UTC)
	require.True(t, tracker.IsLate(slot))
}

func TestDailyStatsCountsStudySlots(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	student := seedUser(t, db, models.User{Email: "ama@example.com", Role: models.RoleStudent})

	onTime := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	lateStamp := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	slots := []models.TimeSlot{
		{StudentID: student.ID, Day: models.Monday, TimeRange: "08:00-09:00", Activity: "Revision", Completed: boolPtr(true), CompletedAt: &onTime},
		{StudentID: student.ID, Day: models.Monday, TimeRange: "09:10-10:00", Activity: "Revision", Completed: boolPtr(true), CompletedAt: &lateStamp},
		{StudentID: student.ID, Day: models.Monday, TimeRange: "10:00-10:10", Activity: "Break"},
		{StudentID: student.ID, Day: models.Monday, TimeRange: "10:10-11:00", Activity: "Study", Completed: boolPtr(true), CompletedAt: &lateStamp},
		{StudentID: student.ID, Day: models.Monday, TimeRange: "11:00-12:00", Activity: "Revision", Completed: boolPtr(false)},
		{StudentID: student.ID, Day: models.Tuesday, TimeRange: "08:00-09:00", Activity: "Revision"},
	}
	for i := range slots {
		require.NoError(t, db.Create(&slots[i]).Error)
	}

	tracker := NewCompletionTracker(repository.NewUserRepository(db), repository.NewTimeSlotRepository(db), nil, 0, time.UTC, zerolog.Nop())

	stats, err := tracker.DailyStats(ctx, student.ID, models.Monday)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 3, stats.Completed)
	require.Equal(t, 1, stats.Remaining)
	require.Equal(t, 2, stats.Late)
	require.InDelta(t, 75.0, stats.CompletionPercentage, 0.001)

	empty, err := tracker.DailyStats(ctx, student.ID, models.Sunday)
	require.NoError(t, err)
	require.Zero(t, empty.Total)
	require.Zero(t, empty.CompletionPercentage)

	_, err = tracker.DailyStats(ctx, 9999, models.Monday)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestWeeklyViewGroupsAndCaches(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := newTestDB(t)
	ctx := context.Background()
	student := seedUser(t, db, models.User{Email: "yaw@example.com", Role: models.RoleStudent})
	seedSlot(t, db, student.ID, models.Wednesday, "18:00-18:50", "Revision", false)
	seedSlot(t, db, student.ID, models.Monday, "19:00-19:30", "Revision", false)
	seedSlot(t, db, student.ID, models.Monday, "17:00-17:45", "Revision", false)

	tracker := NewCompletionTracker(repository.NewUserRepository(db), repository.NewTimeSlotRepository(db), redisClient, time.Minute, time.UTC, zerolog.Nop())

	view, err := tracker.WeeklyView(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, view.Days, 2)
	require.Equal(t, "Monday", view.Days[0].Day)
	require.Equal(t, "17:00-17:45", view.Days[0].Slots[0].TimeRange)
	require.Equal(t, "19:00-19:30", view.Days[0].Slots[1].TimeRange)
	require.Equal(t, "Wednesday", view.Days[1].Day)
	require.True(t, mini.Exists(weeklyViewCacheKey(student.ID)))

	require.NoError(t, db.Where("student_id = ?", student.ID).Delete(&models.TimeSlot{}).Error)
	cached, err := tracker.WeeklyView(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, cached.Days, 2, "served from cache until invalidated")

	mini.Del(weeklyViewCacheKey(student.ID))
	fresh, err := tracker.WeeklyView(ctx, student.ID)
	require.NoError(t, err)
	require.Empty(t, fresh.Days)
}

func TestWeeklyViewChecksStudentBeforeCache(t *testing.T) {
	mini := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := newTestDB(t)
	ctx := context.Background()
	student := seedUser(t, db, models.User{Email: "adjoa@example.com", Role: models.RoleStudent})
	seedSlot(t, db, student.ID, models.Monday, "17:00-17:45", "Revision", false)

	tracker := NewCompletionTracker(repository.NewUserRepository(db), repository.NewTimeSlotRepository(db), redisClient, time.Hour, time.UTC, zerolog.Nop())

	_, err := tracker.WeeklyView(ctx, student.ID)
	require.NoError(t, err)
	require.True(t, mini.Exists(weeklyViewCacheKey(student.ID)))

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", student.ID).Update("role", models.RoleParent).Error)
	_, err = tracker.WeeklyView(ctx, student.ID)
	require.ErrorIs(t, err, ErrStudentNotFound)

	require.NoError(t, db.Delete(&models.User{}, student.ID).Error)
	_, err = tracker.WeeklyView(ctx, student.ID)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

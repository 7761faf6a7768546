package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
)

// LatenessGrace is how long after a slot ends it may still be completed on time.
const LatenessGrace = 5 * time.Minute

// CompletionTracker computes per-slot lateness and per-day/per-week completion views.
type CompletionTracker interface {
	IsLate(slot models.TimeSlot) bool
	DailyStats(ctx context.Context, studentID uint, day models.Weekday) (dto.DailyStats, error)
	DailyView(ctx context.Context, studentID uint, day models.Weekday) (dto.DailyView, error)
	WeeklyView(ctx context.Context, studentID uint) (dto.WeeklyView, error)
	Today() models.Weekday
}

type completionTracker struct {
	users    repository.UserRepository
	slots    repository.TimeSlotRepository
	cache    *redis.Client
	cacheTTL time.Duration
	location *time.Location
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCompletionTracker builds the tracker. Wall-clock comparisons happen in location.
func NewCompletionTracker(users repository.UserRepository, slots repository.TimeSlotRepository, cache *redis.Client, ttl time.Duration, location *time.Location, logger zerolog.Logger) CompletionTracker {
	if location == nil {
		location = time.Local
	}
	return &completionTracker{
		users:    users,
		slots:    slots,
		cache:    cache,
		cacheTTL: ttl,
		location: location,
		logger:   logger.With().Str("component", "completion_tracker").Logger(),
		now:      time.Now,
	}
}

// IsLate never errors: a missing completion stamp or an unparseable range is not late.
func (t *completionTracker) IsLate(slot models.TimeSlot) bool {
	return isLate(slot, t.location)
}

func isLate(slot models.TimeSlot, location *time.Location) bool {
	if !slot.IsCompleted() || slot.CompletedAt == nil {
		return false
	}
	window, err := slot.ParsedRange()
	if err != nil {
		return false
	}
	completedAt := slot.CompletedAt.In(location)
	return models.ClockOffset(completedAt) > window.End+LatenessGrace
}

func (t *completionTracker) Today() models.Weekday {
	return models.WeekdayOf(t.now().In(t.location))
}

func (t *completionTracker) DailyStats(ctx context.Context, studentID uint, day models.Weekday) (dto.DailyStats, error) {
	view, err := t.DailyView(ctx, studentID, day)
	if err != nil {
		return dto.DailyStats{}, err
	}
	return view.Stats, nil
}

func (t *completionTracker) DailyView(ctx context.Context, studentID uint, day models.Weekday) (dto.DailyView, error) {
	if err := t.ensureStudent(ctx, studentID); err != nil {
		return dto.DailyView{}, err
	}

	slots, err := t.slots.FindByStudentAndDay(ctx, studentID, day)
	if err != nil {
		return dto.DailyView{}, fmt.Errorf("load %s slots: %w", day, err)
	}

	view := dto.DailyView{
		StudentID: studentID,
		Day:       string(day),
		Slots:     make([]dto.SlotResponse, 0, len(slots)),
	}
	for _, slot := range slots {
		if slot.IsBreak() {
			continue
		}
		late := t.IsLate(slot)
		view.Stats.Total++
		if slot.IsCompleted() {
			view.Stats.Completed++
		}
		if late {
			view.Stats.Late++
		}
		view.Slots = append(view.Slots, dto.NewSlotResponse(slot, late))
	}

	view.Stats.Remaining = view.Stats.Total - view.Stats.Completed
	if view.Stats.Total > 0 {
		view.Stats.CompletionPercentage = 100 * float64(view.Stats.Completed) / float64(view.Stats.Total)
	}

	return view, nil
}

func (t *completionTracker) WeeklyView(ctx context.Context, studentID uint) (dto.WeeklyView, error) {
	if err := t.ensureStudent(ctx, studentID); err != nil {
		return dto.WeeklyView{}, err
	}

	cacheKey := weeklyViewCacheKey(studentID)
	if t.cache != nil {
		if cached, err := t.cache.Get(ctx, cacheKey).Result(); err == nil {
			var view dto.WeeklyView
			if unmarshalErr := json.Unmarshal([]byte(cached), &view); unmarshalErr == nil {
				t.logger.Debug().Uint("student_id", studentID).Msg("weekly view cache hit")
				return view, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			t.logger.Warn().Err(err).Msg("failed to read weekly view cache")
		}
	}

	slots, err := t.slots.FindAllByStudent(ctx, studentID)
	if err != nil {
		return dto.WeeklyView{}, fmt.Errorf("load weekly slots: %w", err)
	}

	view := t.buildWeeklyView(studentID, slots)

	if t.cache != nil && t.cacheTTL > 0 {
		payload, err := json.Marshal(view)
		if err == nil {
			if err := t.cache.Set(ctx, cacheKey, payload, t.cacheTTL).Err(); err != nil {
				t.logger.Warn().Err(err).Msg("failed to store weekly view cache")
			}
		}
	}

	return view, nil
}

func (t *completionTracker) buildWeeklyView(studentID uint, slots []models.TimeSlot) dto.WeeklyView {
	byDay := make(map[models.Weekday][]dto.SlotResponse, 7)
	for _, slot := range slots {
		byDay[slot.Day] = append(byDay[slot.Day], dto.NewSlotResponse(slot, t.IsLate(slot)))
	}

	view := dto.WeeklyView{StudentID: studentID, Days: make([]dto.DaySchedule, 0, len(byDay))}
	for _, day := range models.Weekdays() {
		entries, ok := byDay[day]
		if !ok {
			continue
		}
		view.Days = append(view.Days, dto.DaySchedule{Day: string(day), Slots: entries})
	}
	return view
}

func (t *completionTracker) ensureStudent(ctx context.Context, studentID uint) error {
	if _, err := t.users.GetStudent(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	return nil
}

func weeklyViewCacheKey(studentID uint) string {
	return fmt.Sprintf("schedule:week:%d", studentID)
}

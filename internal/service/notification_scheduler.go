package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// NotificationCadence configures when each check runs.
type NotificationCadence struct {
	SessionEndingEvery time.Duration
	QuizScoresEvery    time.Duration
	// UnfinishedWorkAt is the wall-clock offset from midnight of the daily run.
	UnfinishedWorkAt time.Duration
	Location         *time.Location
	// RunTimeout bounds a single run; zero means no timeout.
	RunTimeout time.Duration
}

// DefaultNotificationCadence returns every 15 minutes, daily at 23:00 and hourly.
func DefaultNotificationCadence() NotificationCadence {
	return NotificationCadence{
		SessionEndingEvery: 15 * time.Minute,
		QuizScoresEvery:    time.Hour,
		UnfinishedWorkAt:   23 * time.Hour,
		Location:           time.Local,
		RunTimeout:         5 * time.Minute,
	}
}

// ScheduledCheck describes a registered check and its next activation.
type ScheduledCheck struct {
	Check NotificationCheck `json:"check"`
	Next  time.Time         `json:"next"`
}

// NotificationScheduler runs the engine checks on their cadences.
type NotificationScheduler struct {
	cron    *cron.Cron
	engine  NotificationEngine
	cadence NotificationCadence
	logger  zerolog.Logger
	entries map[NotificationCheck]cron.EntryID
}

// NewNotificationScheduler registers the three checks. Overlapping runs of one check are skipped.
func NewNotificationScheduler(engine NotificationEngine, cadence NotificationCadence, logger zerolog.Logger) (*NotificationScheduler, error) {
	if cadence.Location == nil {
		cadence.Location = time.Local
	}
	if cadence.SessionEndingEvery <= 0 || cadence.QuizScoresEvery <= 0 {
		return nil, fmt.Errorf("notification intervals must be positive")
	}
	if cadence.UnfinishedWorkAt < 0 || cadence.UnfinishedWorkAt >= 24*time.Hour {
		return nil, fmt.Errorf("unfinished work time must be within the day")
	}

	schedulerLogger := logger.With().Str("component", "notification_scheduler").Logger()
	cronLog := cronLogger{logger: schedulerLogger}

	scheduler := &NotificationScheduler{
		cron: cron.New(
			cron.WithLocation(cadence.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		engine:  engine,
		cadence: cadence,
		logger:  schedulerLogger,
		entries: make(map[NotificationCheck]cron.EntryID, 3),
	}

	schedules := map[NotificationCheck]cron.Schedule{
		CheckSessionEnding:  cron.Every(cadence.SessionEndingEvery),
		CheckUnfinishedWork: DailyAt(cadence.UnfinishedWorkAt, cadence.Location),
		CheckQuizScores:     cron.Every(cadence.QuizScoresEvery),
	}
	for _, check := range NotificationChecks() {
		scheduler.entries[check] = scheduler.cron.Schedule(schedules[check], scheduler.job(check))
	}

	return scheduler, nil
}

func (s *NotificationScheduler) job(check NotificationCheck) cron.Job {
	return cron.FuncJob(func() {
		ctx := context.Background()
		if s.cadence.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cadence.RunTimeout)
			defer cancel()
		}

		if _, err := s.engine.Run(ctx, check); err != nil && !errors.Is(err, ErrCheckInProgress) {
			s.logger.Error().Err(err).Str("check", string(check)).Msg("scheduled notification check failed")
		}
	})
}

// Start begins running checks in the background.
func (s *NotificationScheduler) Start() {
	s.cron.Start()
	for _, entry := range s.Entries() {
		s.logger.Info().Str("check", string(entry.Check)).Time("next", entry.Next).Msg("notification check scheduled")
	}
}

// Stop prevents new runs and waits for active runs until ctx is done.
func (s *NotificationScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries lists the registered checks with their next activation.
func (s *NotificationScheduler) Entries() []ScheduledCheck {
	out := make([]ScheduledCheck, 0, len(s.entries))
	now := time.Now().In(s.cadence.Location)
	for _, check := range NotificationChecks() {
		id, ok := s.entries[check]
		if !ok {
			continue
		}
		entry := s.cron.Entry(id)
		next := entry.Next
		if next.IsZero() && entry.Schedule != nil {
			next = entry.Schedule.Next(now)
		}
		out = append(out, ScheduledCheck{Check: check, Next: next})
	}
	return out
}

type dailySchedule struct {
	offset   time.Duration
	location *time.Location
}

// DailyAt returns a cron schedule firing once a day at offset past midnight in location.
func DailyAt(offset time.Duration, location *time.Location) cron.Schedule {
	if location == nil {
		location = time.Local
	}
	return dailySchedule{offset: offset, location: location}
}

func (d dailySchedule) Next(t time.Time) time.Time {
	local := t.In(d.location)
	hours := int(d.offset / time.Hour)
	minutes := int((d.offset % time.Hour) / time.Minute)
	year, month, day := local.Date()

	candidate := time.Date(year, month, day, hours, minutes, 0, 0, d.location)
	if !candidate.After(local) {
		candidate = time.Date(year, month, day+1, hours, minutes, 0, 0, d.location)
	}
	return candidate
}

type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

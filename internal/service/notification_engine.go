package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/observability"
	"github.com/noah-isme/studyplan-api/internal/repository"
	"github.com/noah-isme/studyplan-api/pkg/mailer"
)

// NotificationCheck names one of the periodic notification checks.
type NotificationCheck string

const (
	CheckSessionEnding  NotificationCheck = "session_ending"
	CheckUnfinishedWork NotificationCheck = "unfinished_work"
	CheckQuizScores     NotificationCheck = "quiz_scores"
)

const (
	// A reminder fires when the session ends in more than endingWindowMin and at most endingWindowMax minutes.
	endingWindowMin  = 5
	endingWindowMax  = 15
	quizLookback     = time.Hour
	defaultDedupeTTL = 2 * time.Hour
)

// NotificationChecks lists every check in a stable order.
func NotificationChecks() []NotificationCheck {
	return []NotificationCheck{CheckSessionEnding, CheckUnfinishedWork, CheckQuizScores}
}

// ParseNotificationCheck resolves a check name; dashes and case are ignored.
func ParseNotificationCheck(value string) (NotificationCheck, error) {
	normalized := NotificationCheck(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_"))
	for _, check := range NotificationChecks() {
		if check == normalized {
			return check, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCheck, value)
}

// NotificationEngine evaluates the notification checks against live schedule and quiz state.
type NotificationEngine interface {
	RunSessionEndingCheck(ctx context.Context) (dto.CheckReport, error)
	RunUnfinishedWorkCheck(ctx context.Context) (dto.CheckReport, error)
	RunQuizScoreCheck(ctx context.Context) (dto.CheckReport, error)
	// Run executes one check. A second run of the same check while one is active fails with ErrCheckInProgress.
	Run(ctx context.Context, check NotificationCheck) (dto.CheckReport, error)
}

// NotificationEngineOptions carries the optional collaborators of the engine.
type NotificationEngineOptions struct {
	Deduper   NotificationDeduper
	Publisher NotificationPublisher
	History   repository.NotificationLogRepository
	Location  *time.Location
	DedupeTTL time.Duration
}

type notificationEngine struct {
	users      repository.UserRepository
	slots      repository.TimeSlotRepository
	quizzes    repository.QuizRepository
	dispatcher mailer.Dispatcher
	validator  *validator.Validate
	deduper    NotificationDeduper
	publisher  NotificationPublisher
	history    repository.NotificationLogRepository
	location   *time.Location
	dedupeTTL  time.Duration
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	running    map[NotificationCheck]*sync.Mutex
}

type delivery struct {
	role    string
	to      models.User
	message emailMessage
}

// NewNotificationEngine constructs the engine.
func NewNotificationEngine(users repository.UserRepository, slots repository.TimeSlotRepository, quizzes repository.QuizRepository, dispatcher mailer.Dispatcher, validate *validator.Validate, logger zerolog.Logger, opts NotificationEngineOptions) NotificationEngine {
	if opts.Deduper == nil {
		opts.Deduper = NewMemoryDeduper()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = defaultDedupeTTL
	}
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	running := make(map[NotificationCheck]*sync.Mutex, 3)
	for _, check := range NotificationChecks() {
		running[check] = &sync.Mutex{}
	}

	return &notificationEngine{
		users:      users,
		slots:      slots,
		quizzes:    quizzes,
		dispatcher: dispatcher,
		validator:  validate,
		deduper:    opts.Deduper,
		publisher:  opts.Publisher,
		history:    opts.History,
		location:   opts.Location,
		dedupeTTL:  opts.DedupeTTL,
		logger:     logger.With().Str("component", "notification_engine").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/studyplan-api/internal/service/notification"),
		now:        time.Now,
		running:    running,
	}
}

func (e *notificationEngine) RunSessionEndingCheck(ctx context.Context) (dto.CheckReport, error) {
	return e.Run(ctx, CheckSessionEnding)
}

func (e *notificationEngine) RunUnfinishedWorkCheck(ctx context.Context) (dto.CheckReport, error) {
	return e.Run(ctx, CheckUnfinishedWork)
}

func (e *notificationEngine) RunQuizScoreCheck(ctx context.Context) (dto.CheckReport, error) {
	return e.Run(ctx, CheckQuizScores)
}

func (e *notificationEngine) Run(ctx context.Context, check NotificationCheck) (dto.CheckReport, error) {
	var evaluate func(context.Context, *dto.CheckReport) error
	switch check {
	case CheckSessionEnding:
		evaluate = e.checkSessionEnding
	case CheckUnfinishedWork:
		evaluate = e.checkUnfinishedWork
	case CheckQuizScores:
		evaluate = e.checkQuizScores
	default:
		return dto.CheckReport{}, fmt.Errorf("%w: %q", ErrUnknownCheck, check)
	}

	lock := e.running[check]
	if !lock.TryLock() {
		observability.NotificationCheckRuns().WithLabelValues(string(check), "busy").Inc()
		e.logger.Info().Str("check", string(check)).Msg("check still running, skipping")
		return dto.CheckReport{Check: string(check)}, ErrCheckInProgress
	}
	defer lock.Unlock()

	ctx, span := e.tracer.Start(ctx, "notifications.check", trace.WithAttributes(
		attribute.String("notification.check", string(check)),
	))
	defer span.End()

	started := time.Now()
	report := dto.CheckReport{Check: string(check), StartedAt: e.now()}
	err := e.guard(check, func() error { return evaluate(ctx, &report) })
	report.Duration = time.Since(started)

	observability.NotificationCheckDuration().WithLabelValues(string(check)).Observe(report.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("notification.evaluated", report.Evaluated),
		attribute.Int("notification.dispatched", report.Dispatched),
		attribute.Int("notification.failed", report.Failed),
	)

	logger := e.logger.With().Str("check", string(check)).Logger()
	if err != nil {
		report.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "check aborted")
		observability.NotificationCheckRuns().WithLabelValues(string(check), "error").Inc()
		logger.Error().Err(err).
			Int("dispatched", report.Dispatched).
			Msg("notification check aborted")
		return report, err
	}

	observability.NotificationCheckRuns().WithLabelValues(string(check), "ok").Inc()
	logger.Info().
		Int("evaluated", report.Evaluated).
		Int("dispatched", report.Dispatched).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("notification check completed")
	return report, nil
}

func (e *notificationEngine) guard(check NotificationCheck, fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%s check panicked: %v", check, recovered)
		}
	}()
	return fn()
}

// eachRecord runs fn for one record. Errors and panics are logged and reported as false.
func (e *notificationEngine) eachRecord(logger zerolog.Logger, fn func() error) (ok bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error().Interface("panic", recovered).Msg("record processing panicked, skipped")
			ok = false
		}
	}()
	if err := fn(); err != nil {
		logger.Warn().Err(err).Msg("record skipped")
		return false
	}
	return true
}

func (e *notificationEngine) checkSessionEnding(ctx context.Context, report *dto.CheckReport) error {
	now := e.now().In(e.location)
	today := models.WeekdayOf(now)

	students, err := e.users.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	for _, student := range students {
		logger := e.logger.With().Str("check", string(CheckSessionEnding)).Uint("student_id", student.ID).Logger()
		ok := e.eachRecord(logger, func() error {
			slots, err := e.slots.FindUncompletedByStudentAndDay(ctx, student.ID, today)
			if err != nil {
				return fmt.Errorf("load slots: %w", err)
			}

			for _, slot := range slots {
				if !slot.IsStudy() {
					continue
				}
				report.Evaluated++

				window, err := slot.ParsedRange()
				if err != nil {
					report.Skipped++
					logger.Debug().Uint("slot_id", slot.ID).Str("time_range", slot.TimeRange).Msg("unparseable time range skipped")
					continue
				}

				minutesLeft := int(window.EndOn(now).Sub(now) / time.Minute)
				if minutesLeft <= endingWindowMin || minutesLeft > endingWindowMax {
					continue
				}

				e.deliver(ctx, report, CheckSessionEnding, student.ID, strconv.FormatUint(uint64(slot.ID), 10), []delivery{
					{role: "student", to: student, message: sessionEndingMessage(student, slot, minutesLeft)},
				})
			}
			return nil
		})
		if !ok {
			report.Skipped++
		}
	}

	return nil
}

func (e *notificationEngine) checkUnfinishedWork(ctx context.Context, report *dto.CheckReport) error {
	now := e.now().In(e.location)
	today := models.WeekdayOf(now)

	students, err := e.users.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}

	for _, student := range students {
		logger := e.logger.With().Str("check", string(CheckUnfinishedWork)).Uint("student_id", student.ID).Logger()
		ok := e.eachRecord(logger, func() error {
			slots, err := e.slots.FindUncompletedByStudentAndDay(ctx, student.ID, today)
			if err != nil {
				return fmt.Errorf("load slots: %w", err)
			}
			report.Evaluated++

			if len(slots) == 0 {
				return nil
			}
			unfinished := slots

			deliveries := []delivery{
				{role: "student", to: student, message: unfinishedWorkStudentMessage(student, unfinished)},
			}
			if parent, ok := e.linkedParent(student); ok {
				deliveries = append(deliveries, delivery{
					role:    "parent",
					to:      parent.User,
					message: unfinishedWorkParentMessage(parent.User, student, unfinished),
				})
			}

			e.deliver(ctx, report, CheckUnfinishedWork, student.ID, now.Format("2006-01-02"), deliveries)
			return nil
		})
		if !ok {
			report.Skipped++
		}
	}

	return nil
}

func (e *notificationEngine) checkQuizScores(ctx context.Context, report *dto.CheckReport) error {
	since := e.now().Add(-quizLookback)

	quizzes, err := e.quizzes.ListCompletedSince(ctx, since)
	if err != nil {
		return fmt.Errorf("list recent quizzes: %w", err)
	}

	for _, quiz := range quizzes {
		logger := e.logger.With().Str("check", string(CheckQuizScores)).Uint("quiz_id", quiz.ID).Logger()
		ok := e.eachRecord(logger, func() error {
			report.Evaluated++
			if quiz.Score == nil {
				return fmt.Errorf("quiz has no score")
			}
			if quiz.Student == nil {
				return fmt.Errorf("quiz student %d not loaded", quiz.StudentID)
			}

			student := *quiz.Student
			recipient := delivery{role: "student", to: student}
			if parent, ok := e.linkedParent(student); ok {
				recipient = delivery{role: "parent", to: parent.User}
			}
			recipient.message = quizScoreMessage(recipient.to, student, quiz)

			e.deliver(ctx, report, CheckQuizScores, student.ID, strconv.FormatUint(uint64(quiz.ID), 10), []delivery{recipient})
			return nil
		})
		if !ok {
			report.Skipped++
		}
	}

	return nil
}

func (e *notificationEngine) linkedParent(student models.User) (models.ParentView, bool) {
	view, ok := student.AsStudent()
	if !ok {
		return models.ParentView{}, false
	}
	parent, ok := view.LinkedParent()
	if !ok || !e.usableEmail(parent.Email) {
		return models.ParentView{}, false
	}
	return parent, true
}

func (e *notificationEngine) usableEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return e.validator.Var(email, "required,email") == nil
}

func (e *notificationEngine) deliver(ctx context.Context, report *dto.CheckReport, check NotificationCheck, studentID uint, target string, deliveries []delivery) {
	logger := e.logger.With().
		Str("check", string(check)).
		Uint("student_id", studentID).
		Str("target", target).
		Logger()

	claimed, err := e.deduper.Claim(ctx, dedupeKey(check, studentID, target), e.dedupeTTL)
	if err != nil {
		logger.Warn().Err(err).Msg("dedupe claim failed, sending anyway")
	} else if !claimed {
		report.Skipped++
		observability.NotificationsDeduplicated().WithLabelValues(string(check)).Inc()
		logger.Debug().Msg("notification already sent in this window")
		return
	}

	for _, item := range deliveries {
		if !e.usableEmail(item.to.Email) {
			report.Skipped++
			logger.Warn().Str("recipient", item.role).Msg("recipient has no usable email")
			continue
		}

		if !e.dispatcher.Send(ctx, item.to.Email, item.message.Subject, item.message.Body) {
			report.Failed++
			observability.NotificationsDispatched().WithLabelValues(string(check), item.role, "failed").Inc()
			e.record(ctx, check, studentID, target, item, models.DeliveryFailed)
			logger.Warn().
				Str("recipient", item.role).
				Str("email", mailer.MaskAddress(item.to.Email)).
				Msg("notification dispatch failed")
			continue
		}

		report.Dispatched++
		observability.NotificationsDispatched().WithLabelValues(string(check), item.role, "sent").Inc()
		e.record(ctx, check, studentID, target, item, models.DeliverySent)
		logger.Info().
			Str("recipient", item.role).
			Str("email", mailer.MaskAddress(item.to.Email)).
			Str("subject", item.message.Subject).
			Msg("notification dispatched")

		if e.publisher != nil {
			event := dto.NotificationEvent{
				Check:     string(check),
				StudentID: studentID,
				TargetID:  target,
				Recipient: item.role,
				Subject:   item.message.Subject,
				FiredAt:   e.now(),
			}
			if err := e.publisher.Publish(ctx, event); err != nil {
				logger.Warn().Err(err).Msg("failed to publish notification event")
			}
		}
	}
}

func (e *notificationEngine) record(ctx context.Context, check NotificationCheck, studentID uint, target string, item delivery, status string) {
	if e.history == nil {
		return
	}
	entry := models.NotificationLog{
		StudentID: studentID,
		CheckName: string(check),
		TargetID:  target,
		Recipient: item.role,
		Email:     item.to.Email,
		Subject:   item.message.Subject,
		Status:    status,
	}
	if err := e.history.Create(ctx, &entry); err != nil {
		e.logger.Warn().Err(err).Str("check", string(check)).Uint("student_id", studentID).Msg("failed to record notification history")
	}
}

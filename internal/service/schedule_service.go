package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/observability"
	"github.com/noah-isme/studyplan-api/internal/repository"
	"github.com/noah-isme/studyplan-api/pkg/ai"
)

// ScheduleService generates, imports and mutates student schedules.
type ScheduleService interface {
	Generate(ctx context.Context, studentID uint, req dto.GenerateScheduleRequest) (dto.ScheduleGenerationResponse, error)
	Import(ctx context.Context, studentID uint, raw json.RawMessage) (dto.ScheduleGenerationResponse, error)
	Clear(ctx context.Context, studentID uint) (int64, error)
	GetSlot(ctx context.Context, slotID uint) (models.TimeSlot, error)
	SetCompletion(ctx context.Context, slotID uint, completed bool) (dto.SlotResponse, error)
}

type scheduleService struct {
	users     repository.UserRepository
	slots     repository.TimeSlotRepository
	subjects  repository.SubjectRepository
	suggester ai.ScheduleSuggester
	tracker   CompletionTracker
	cache     *redis.Client
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewScheduleService constructs the schedule service. A nil suggester makes Generate fail with ErrSuggestionUnavailable.
func NewScheduleService(users repository.UserRepository, slots repository.TimeSlotRepository, subjects repository.SubjectRepository, suggester ai.ScheduleSuggester, tracker CompletionTracker, cache *redis.Client, validate *validator.Validate, logger zerolog.Logger) ScheduleService {
	return &scheduleService{
		users:     users,
		slots:     slots,
		subjects:  subjects,
		suggester: suggester,
		tracker:   tracker,
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "schedule_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/studyplan-api/internal/service/schedule"),
		now:       time.Now,
	}
}

func (s *scheduleService) Generate(ctx context.Context, studentID uint, req dto.GenerateScheduleRequest) (dto.ScheduleGenerationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.generate", trace.WithAttributes(
		attribute.Int("schedule.student_id", int(studentID)),
		attribute.Int("schedule.subjects", len(req.Subjects)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ScheduleGenerationResponse{}, err
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		span.RecordError(err)
		return dto.ScheduleGenerationResponse{}, err
	}

	if s.suggester == nil {
		observability.ScheduleGenerations().WithLabelValues(models.ScheduleSourceAI, "unavailable").Inc()
		return dto.ScheduleGenerationResponse{}, fmt.Errorf("%w: no provider configured", ErrSuggestionUnavailable)
	}

	maxStudy := req.MaxStudyMinutes
	if maxStudy == 0 {
		maxStudy = student.MaxStudyMinutes
	}
	raw, err := s.suggester.Suggest(ctx, ai.SuggestionRequest{
		StudentName:        student.FullName(),
		Subjects:           req.Subjects,
		Days:               req.Days,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		MaxStudyMinutes:    maxStudy,
		BreakMinutes:       req.BreakMinutes,
		PreparationMinutes: student.PreparationMinutes,
		Preferences:        req.Preferences,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failed")
		observability.ScheduleGenerations().WithLabelValues(models.ScheduleSourceAI, "unavailable").Inc()
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("schedule suggestion failed")
		return dto.ScheduleGenerationResponse{}, fmt.Errorf("%w: %v", ErrSuggestionUnavailable, err)
	}

	request := datatypes.JSONMap{
		"subjects":          req.Subjects,
		"days":              req.Days,
		"start_time":        req.StartTime,
		"end_time":          req.EndTime,
		"max_study_minutes": maxStudy,
		"break_minutes":     req.BreakMinutes,
		"preferences":       req.Preferences,
	}

	response, err := s.replace(ctx, studentID, models.ScheduleSourceAI, request, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace failed")
		return dto.ScheduleGenerationResponse{}, err
	}

	span.SetStatus(codes.Ok, "generated")
	return response, nil
}

func (s *scheduleService) Import(ctx context.Context, studentID uint, raw json.RawMessage) (dto.ScheduleGenerationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.import", trace.WithAttributes(
		attribute.Int("schedule.student_id", int(studentID)),
	))
	defer span.End()

	if _, err := s.loadStudent(ctx, studentID); err != nil {
		span.RecordError(err)
		return dto.ScheduleGenerationResponse{}, err
	}

	response, err := s.replace(ctx, studentID, models.ScheduleSourceManual, nil, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		return dto.ScheduleGenerationResponse{}, err
	}
	return response, nil
}

// replace normalises raw and swaps the student's schedule in one transaction.
func (s *scheduleService) replace(ctx context.Context, studentID uint, source string, request datatypes.JSONMap, raw json.RawMessage) (dto.ScheduleGenerationResponse, error) {
	normalized, err := NormalizeSchedule(raw)
	if err != nil {
		observability.ScheduleGenerations().WithLabelValues(source, "invalid").Inc()
		s.logger.Warn().Err(err).Uint("student_id", studentID).Str("source", source).Msg("schedule rejected")
		return dto.ScheduleGenerationResponse{}, err
	}

	generatedAt := s.now()
	slots := make([]models.TimeSlot, 0, len(normalized))
	subjectIDs := map[string]uint{}
	for _, item := range normalized {
		duration := item.DurationMinutes
		incomplete := false
		slot := models.TimeSlot{
			Day:             item.Day,
			TimeRange:       item.Range.String(),
			Activity:        item.Activity,
			Kind:            item.Kind,
			Topic:           item.Topic,
			DurationMinutes: &duration,
			GeneratedAt:     generatedAt,
			Completed:       &incomplete,
		}

		if item.Kind != models.ActivityBreak && item.Subject != "" {
			id, ok := subjectIDs[item.Subject]
			if !ok {
				subject, err := s.subjects.FindOrCreate(ctx, item.Subject)
				if err != nil {
					observability.ScheduleGenerations().WithLabelValues(source, "error").Inc()
					return dto.ScheduleGenerationResponse{}, fmt.Errorf("resolve subject %q: %w", item.Subject, err)
				}
				id = subject.ID
				subjectIDs[item.Subject] = id
			}
			subjectID := id
			slot.SubjectID = &subjectID
		}
		slots = append(slots, slot)
	}

	session := &models.ScheduleSession{
		ID:      uuid.NewString(),
		Source:  source,
		Request: request,
	}
	if err := s.slots.ReplaceAll(ctx, studentID, session, slots); err != nil {
		observability.ScheduleGenerations().WithLabelValues(source, "error").Inc()
		return dto.ScheduleGenerationResponse{}, fmt.Errorf("replace schedule: %w", err)
	}
	s.invalidate(ctx, studentID)

	week, err := s.tracker.WeeklyView(ctx, studentID)
	if err != nil {
		return dto.ScheduleGenerationResponse{}, err
	}

	observability.ScheduleGenerations().WithLabelValues(source, "ok").Inc()
	s.logger.Info().
		Uint("student_id", studentID).
		Str("session_id", session.ID).
		Str("source", source).
		Int("slots", len(slots)).
		Msg("schedule replaced")

	return dto.ScheduleGenerationResponse{
		SessionID:   session.ID,
		Source:      source,
		SlotCount:   len(slots),
		GeneratedAt: generatedAt,
		Week:        week,
	}, nil
}

func (s *scheduleService) Clear(ctx context.Context, studentID uint) (int64, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return 0, err
	}
	removed, err := s.slots.DeleteByStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, studentID)
	s.logger.Info().Uint("student_id", studentID).Int64("removed", removed).Msg("schedule cleared")
	return removed, nil
}

func (s *scheduleService) GetSlot(ctx context.Context, slotID uint) (models.TimeSlot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TimeSlot{}, ErrSlotNotFound
		}
		return models.TimeSlot{}, err
	}
	return slot, nil
}

func (s *scheduleService) SetCompletion(ctx context.Context, slotID uint, completed bool) (dto.SlotResponse, error) {
	var completedAt *time.Time
	if completed {
		stamp := s.now()
		completedAt = &stamp
	}

	slot, err := s.slots.SetCompletion(ctx, slotID, completed, completedAt)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SlotResponse{}, ErrSlotNotFound
		}
		return dto.SlotResponse{}, err
	}
	s.invalidate(ctx, slot.StudentID)

	action := "uncomplete"
	if completed {
		action = "complete"
	}
	observability.SlotCompletions().WithLabelValues(action).Inc()

	return dto.NewSlotResponse(slot, s.tracker.IsLate(slot)), nil
}

func (s *scheduleService) loadStudent(ctx context.Context, studentID uint) (models.User, error) {
	student, err := s.users.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrStudentNotFound
		}
		return models.User{}, err
	}
	return student, nil
}

func (s *scheduleService) invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, weeklyViewCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate weekly view cache")
	}
}

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/observability"
	"github.com/noah-isme/studyplan-api/internal/repository"
)

const supportDedupeWindow = 5 * time.Minute

// SupportService runs the help desk used by students and parents.
type SupportService interface {
	Open(ctx context.Context, actor Actor, req dto.SupportTicketCreateRequest) (dto.SupportTicketResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SupportTicketResponse, error)
	List(ctx context.Context, actor Actor, req dto.SupportTicketListRequest) (dto.SupportTicketListResponse, error)
	Reply(ctx context.Context, actor Actor, id uint, req dto.SupportMessageRequest) (dto.SupportMessageResponse, error)
	Update(ctx context.Context, id uint, req dto.SupportTicketUpdateRequest) (dto.SupportTicketResponse, error)
	Statistics(ctx context.Context) (dto.SupportStatistics, error)
}

type supportService struct {
	tickets   repository.SupportRepository
	users     repository.UserRepository
	cache     *redis.Client
	delivery  SupportDelivery
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewSupportService constructs the support service. cache and delivery may be nil.
func NewSupportService(tickets repository.SupportRepository, users repository.UserRepository, cache *redis.Client, delivery SupportDelivery, validate *validator.Validate, logger zerolog.Logger) SupportService {
	return &supportService{
		tickets:   tickets,
		users:     users,
		cache:     cache,
		delivery:  delivery,
		validator: validate,
		logger:    logger.With().Str("component", "support_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/studyplan-api/internal/service/support"),
	}
}

func (s *supportService) Open(ctx context.Context, actor Actor, req dto.SupportTicketCreateRequest) (dto.SupportTicketResponse, error) {
	ctx, span := s.tracer.Start(ctx, "support.open")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.SupportTicketResponse{}, err
	}

	author, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SupportTicketResponse{}, ErrForbidden
		}
		return dto.SupportTicketResponse{}, err
	}

	subject := cleanText(req.Subject)
	description := cleanText(req.Description)
	if subject == "" || description == "" {
		return dto.SupportTicketResponse{}, s.validator.Struct(dto.SupportTicketCreateRequest{Subject: subject, Description: description})
	}

	checksum := ticketChecksum(strconv.FormatUint(uint64(author.ID), 10), subject, description)
	span.SetAttributes(attribute.String("support.checksum", checksum))

	duplicate, err := s.isDuplicate(ctx, checksum)
	if err != nil {
		span.RecordError(err)
		observability.SupportTickets().WithLabelValues("error").Inc()
		return dto.SupportTicketResponse{}, err
	}
	if duplicate {
		span.SetStatus(codes.Error, "duplicate ticket")
		observability.SupportTickets().WithLabelValues("duplicate").Inc()
		return dto.SupportTicketResponse{}, ErrDuplicateTicket
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	ticket := models.SupportTicket{
		ReferenceID: uuid.NewString(),
		Subject:     subject,
		Description: description,
		Status:      models.TicketOpen,
		Priority:    priority,
		CreatedByID: author.ID,
		Checksum:    checksum,
	}
	if err := s.tickets.Create(ctx, &ticket); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		observability.SupportTickets().WithLabelValues("error").Inc()
		return dto.SupportTicketResponse{}, err
	}
	ticket.CreatedBy = &author

	if s.delivery != nil {
		if err := s.delivery.Deliver(ctx, ticket); err != nil {
			span.RecordError(err)
			s.logger.Warn().Err(err).Str("reference_id", ticket.ReferenceID).Msg("support inbox delivery failed")
		}
	}

	observability.SupportTickets().WithLabelValues("opened").Inc()
	s.logger.Info().
		Str("reference_id", ticket.ReferenceID).
		Uint("user_id", author.ID).
		Str("priority", ticket.Priority).
		Msg("support ticket opened")
	span.SetStatus(codes.Ok, "opened")

	return newSupportTicketResponse(ticket, false), nil
}

func (s *supportService) Get(ctx context.Context, actor Actor, id uint) (dto.SupportTicketResponse, error) {
	ticket, err := s.load(ctx, actor, id)
	if err != nil {
		return dto.SupportTicketResponse{}, err
	}
	return newSupportTicketResponse(ticket, true), nil
}

func (s *supportService) List(ctx context.Context, actor Actor, req dto.SupportTicketListRequest) (dto.SupportTicketListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SupportTicketListResponse{}, err
	}

	filter := repository.SupportTicketFilter{
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if actor.Role != models.RoleAdmin {
		filter.CreatedByID = actor.ID
	}

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return dto.SupportTicketListResponse{}, err
	}

	items := make([]dto.SupportTicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		items = append(items, newSupportTicketResponse(ticket, false))
	}

	return dto.SupportTicketListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
		},
	}, nil
}

func (s *supportService) Reply(ctx context.Context, actor Actor, id uint, req dto.SupportMessageRequest) (dto.SupportMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SupportMessageResponse{}, err
	}

	ticket, err := s.load(ctx, actor, id)
	if err != nil {
		return dto.SupportMessageResponse{}, err
	}
	sender, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SupportMessageResponse{}, ErrForbidden
		}
		return dto.SupportMessageResponse{}, err
	}

	body := cleanText(req.Message)
	if body == "" {
		return dto.SupportMessageResponse{}, s.validator.Struct(dto.SupportMessageRequest{})
	}

	isAdmin := sender.Role == models.RoleAdmin
	status := ""
	if isAdmin && ticket.Status == models.TicketOpen {
		status = models.TicketInProgress
	}

	message := models.SupportMessage{
		TicketID:     ticket.ID,
		SenderID:     sender.ID,
		Message:      body,
		IsAdminReply: isAdmin,
	}
	if err := s.tickets.AddMessage(ctx, &message, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SupportMessageResponse{}, ErrTicketNotFound
		}
		return dto.SupportMessageResponse{}, err
	}
	message.Sender = &sender

	return newSupportMessageResponse(message), nil
}

func (s *supportService) Update(ctx context.Context, id uint, req dto.SupportTicketUpdateRequest) (dto.SupportTicketResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SupportTicketResponse{}, err
	}

	fields := map[string]interface{}{}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.Priority != nil {
		fields["priority"] = *req.Priority
	}
	if len(fields) == 0 {
		return s.Get(ctx, Actor{Role: models.RoleAdmin}, id)
	}

	ticket, err := s.tickets.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SupportTicketResponse{}, ErrTicketNotFound
		}
		return dto.SupportTicketResponse{}, err
	}

	s.logger.Info().Uint("ticket_id", id).Interface("fields", fields).Msg("support ticket updated")
	return newSupportTicketResponse(ticket, false), nil
}

func (s *supportService) Statistics(ctx context.Context) (dto.SupportStatistics, error) {
	counts, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return dto.SupportStatistics{}, err
	}

	stats := dto.SupportStatistics{
		Open:       counts[models.TicketOpen],
		InProgress: counts[models.TicketInProgress],
		Resolved:   counts[models.TicketResolved],
		Closed:     counts[models.TicketClosed],
	}
	for _, count := range counts {
		stats.Total += count
	}
	return stats, nil
}

// load fetches a ticket visible to the actor: its author or an admin.
func (s *supportService) load(ctx context.Context, actor Actor, id uint) (models.SupportTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SupportTicket{}, ErrTicketNotFound
		}
		return models.SupportTicket{}, err
	}
	if actor.Role != models.RoleAdmin && ticket.CreatedByID != actor.ID {
		return models.SupportTicket{}, ErrForbidden
	}
	return ticket, nil
}

func (s *supportService) isDuplicate(ctx context.Context, checksum string) (bool, error) {
	if s.cache != nil {
		ok, err := s.cache.SetNX(ctx, fmt.Sprintf("support:dedupe:%s", checksum), 1, supportDedupeWindow).Result()
		if err == nil {
			return !ok, nil
		}
		s.logger.Warn().Err(err).Msg("support dedupe cache unavailable, falling back to database")
	}
	return s.tickets.ExistsRecent(ctx, checksum, time.Now().Add(-supportDedupeWindow))
}

func ticketChecksum(parts ...string) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(strings.TrimSpace(strings.ToLower(part))))
		hasher.Write([]byte("|"))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func newSupportTicketResponse(ticket models.SupportTicket, withMessages bool) dto.SupportTicketResponse {
	response := dto.SupportTicketResponse{
		ID:           ticket.ID,
		ReferenceID:  ticket.ReferenceID,
		Subject:      ticket.Subject,
		Description:  ticket.Description,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		CreatedByID:  ticket.CreatedByID,
		MessageCount: len(ticket.Messages),
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
	if ticket.CreatedBy != nil {
		response.CreatedByName = ticket.CreatedBy.FullName()
		response.CreatedByEmail = ticket.CreatedBy.Email
	}
	if withMessages {
		response.Messages = make([]dto.SupportMessageResponse, 0, len(ticket.Messages))
		for _, message := range ticket.Messages {
			response.Messages = append(response.Messages, newSupportMessageResponse(message))
		}
	}
	return response
}

func newSupportMessageResponse(message models.SupportMessage) dto.SupportMessageResponse {
	response := dto.SupportMessageResponse{
		ID:           message.ID,
		TicketID:     message.TicketID,
		SenderID:     message.SenderID,
		Message:      message.Message,
		IsAdminReply: message.IsAdminReply,
		CreatedAt:    message.CreatedAt,
	}
	if message.Sender != nil {
		response.SenderName = message.Sender.FullName()
	}
	return response
}

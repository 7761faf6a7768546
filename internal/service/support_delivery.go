package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/mailer"
)

var errInboxRejected = errors.New("support inbox rejected the message")

// SupportDelivery forwards new tickets to the support team.
type SupportDelivery interface {
	Deliver(ctx context.Context, ticket models.SupportTicket) error
}

// MailSupportDelivery emails new tickets to the support inbox. Without an inbox address it only logs.
type MailSupportDelivery struct {
	dispatcher mailer.Dispatcher
	inbox      string
	logger     zerolog.Logger
}

// NewMailSupportDelivery constructs the mail delivery.
func NewMailSupportDelivery(dispatcher mailer.Dispatcher, inbox string, logger zerolog.Logger) *MailSupportDelivery {
	return &MailSupportDelivery{
		dispatcher: dispatcher,
		inbox:      strings.TrimSpace(inbox),
		logger:     logger.With().Str("component", "support_delivery").Logger(),
	}
}

// Deliver sends the ticket summary to the inbox.
func (d *MailSupportDelivery) Deliver(ctx context.Context, ticket models.SupportTicket) error {
	if d.inbox == "" || d.dispatcher == nil {
		d.logger.Info().Str("reference_id", ticket.ReferenceID).Msg("support ticket recorded, no inbox configured")
		return nil
	}

	author := "unknown user"
	if ticket.CreatedBy != nil {
		author = fmt.Sprintf("%s (%s, %s)", ticket.CreatedBy.FullName(), ticket.CreatedBy.Role, ticket.CreatedBy.Email)
	}

	subject := fmt.Sprintf("[%s] New support ticket: %s", strings.ToUpper(ticket.Priority), ticket.Subject)
	body := fmt.Sprintf("Reference: %s\nFrom: %s\nPriority: %s\n\n%s\n", ticket.ReferenceID, author, ticket.Priority, ticket.Description)

	if !d.dispatcher.Send(ctx, d.inbox, subject, body) {
		return errInboxRejected
	}
	d.logger.Info().Str("reference_id", ticket.ReferenceID).Msg("support ticket delivered to inbox")
	return nil
}

package mailer

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridConfig configures the SendGrid dispatcher.
type SendGridConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
	// Host overrides the API host, mainly for tests.
	Host string
}

// SendGridDispatcher delivers mail through the SendGrid v3 API.
type SendGridDispatcher struct {
	key    string
	host   string
	from   *sgmail.Email
	logger zerolog.Logger
}

// NewSendGridDispatcher builds a dispatcher from the provided configuration.
func NewSendGridDispatcher(cfg SendGridConfig, logger zerolog.Logger) *SendGridDispatcher {
	host := cfg.Host
	if host == "" {
		host = sendGridHost
	}
	return &SendGridDispatcher{
		key:    cfg.APIKey,
		host:   host,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger.With().Str("component", "sendgrid_mailer").Logger(),
	}
}

// Send posts a single plain-text message. Transport errors and 4xx/5xx responses report false.
func (s *SendGridDispatcher) Send(ctx context.Context, to, subject, body string) bool {
	to = strings.TrimSpace(to)
	if to == "" {
		return false
	}

	personalization := sgmail.NewPersonalization()
	personalization.Subject = subject
	personalization.AddTos(sgmail.NewEmail("", to))

	message := sgmail.NewV3Mail()
	message.SetFrom(s.from)
	message.AddPersonalizations(personalization)
	message.AddContent(sgmail.NewContent("text/plain", body))

	req := sendgrid.GetRequest(s.key, sendGridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(message)

	if err := ctx.Err(); err != nil {
		s.logger.Warn().Err(err).Str("to", MaskAddress(to)).Msg("email not sent, context done")
		return false
	}

	res, err := sendgrid.API(req)
	if err != nil {
		s.logger.Warn().Err(err).Str("to", MaskAddress(to)).Msg("sendgrid request failed")
		return false
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.logger.Warn().
			Int("status", res.StatusCode).
			Str("to", MaskAddress(to)).
			Str("response", res.Body).
			Msg("sendgrid rejected email")
		return false
	}

	s.logger.Debug().Int("status", res.StatusCode).Str("to", MaskAddress(to)).Msg("email accepted by sendgrid")
	return true
}

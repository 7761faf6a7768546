package mailer

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Dispatcher sends a plain-text email. Delivery is best effort; false means it failed.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) bool
}

// LogDispatcher writes messages to the log instead of sending them.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher constructs a logging dispatcher for development environments.
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With().Str("component", "log_mailer").Logger()}
}

// Send logs the message and reports success.
func (l *LogDispatcher) Send(_ context.Context, to, subject, body string) bool {
	l.logger.Info().
		Str("to", MaskAddress(to)).
		Str("subject", subject).
		Int("body_length", len(body)).
		Msg("email delivered to log")
	return true
}

// MaskAddress hides most of the local part of an address for logging.
func MaskAddress(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" {
		return "***"
	}
	local := parts[0]
	domain := parts[1]
	if len(local) <= 2 {
		local = local[:1] + "***"
	} else {
		local = local[:1] + "***" + local[len(local)-1:]
	}
	return local + "@" + domain
}

package services

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// Mailer delivers account confirmation links.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, link string) error
}

// LogMailer writes the confirmation link to the log instead of sending mail.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log.With("module", "mailer")}
}

func (m *LogMailer) SendConfirmation(ctx context.Context, email, link string) error {
	m.log.Info(ctx, "confirmation link issued", "email", email, "link", link)
	return nil
}

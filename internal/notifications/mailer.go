package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reservo/pkg/logger"
)

const windowLayout = "Mon, 02 Jan 2006 15:04 MST"

type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a rendered confirmation. Delivery itself happens outside
// this service.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

func Compose(n Notification) Email {
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", n.CustomerName)
	fmt.Fprintf(&body, "Your appointment is confirmed for %s - %s.\n\n",
		n.SlotStart.UTC().Format(windowLayout), n.SlotEnd.UTC().Format(windowLayout))
	fmt.Fprintf(&body, "If you wish to cancel, use this link: %s\n\n", n.CancellationLink)
	body.WriteString("Thank you!")

	return Email{
		To:      n.ContactAddress,
		Subject: "Appointment Confirmation & Cancellation Link",
		Body:    body.String(),
	}
}

type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.log.Info("confirmation email rendered",
		"to", email.To,
		"subject", email.Subject,
		"body_length", len(email.Body),
		"rendered_at", time.Now().UTC(),
	)
	return nil
}

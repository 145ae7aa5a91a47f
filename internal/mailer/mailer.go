// Package mailer sends transactional email through Resend, SMTP, or the log.
package mailer

import (
	"context"
	"errors"
	"log"
	"strings"
)

var ErrNoRecipient = errors.New("message has no recipient")

// Message is one outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

func (m Message) validate() error {
	for _, to := range m.To {
		if strings.TrimSpace(to) != "" {
			return nil
		}
	}
	return ErrNoRecipient
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	log.Printf("[MAIL] [INFO] to=%s subject=%q (log sender, not delivered)", strings.Join(msg.To, ","), msg.Subject)
	return nil
}

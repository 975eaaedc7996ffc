package email

import (
	"context"
	"errors"

	"github.com/Domenick1991/smartticket/internal/logger"
)

type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// Message is one outbound mail. ID is a client-side identifier used as the
// queue key and in logs.
type Message struct {
	ID         string      `json:"id"`
	From       string      `json:"from,omitempty"`
	To         string      `json:"to"`
	Subject    string      `json:"subject"`
	HTMLBody   string      `json:"html_body"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

func (m Message) Validate() error {
	if m.To == "" {
		return errors.New("recipient is required")
	}
	if m.Subject == "" {
		return errors.New("subject is required")
	}
	return nil
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender only logs messages. It is the transport for local runs.
type LogSender struct {
	log logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	attachment := ""
	if msg.Attachment != nil {
		attachment = msg.Attachment.FileName
	}
	s.log.Info("mail not delivered, log transport in use",
		"id", msg.ID, "to", msg.To, "subject", msg.Subject, "attachment", attachment)
	return nil
}

var _ Sender = (*LogSender)(nil)

// Package notification turns booking state changes into outbound mail.
package notification

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/Domenick1991/smartticket/internal/email"
	"github.com/Domenick1991/smartticket/internal/ticket"
	"github.com/google/uuid"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCancellation Kind = "cancellation"
)

// Dispatcher renders a notification and hands it to the mail transport.
// It makes exactly one attempt; the outcome is returned to the caller.
type Dispatcher struct {
	sender   email.Sender
	from     string
	currency string
}

func NewDispatcher(sender email.Sender, from, currency string) *Dispatcher {
	return &Dispatcher{sender: sender, from: from, currency: currency}
}

func (d *Dispatcher) Send(ctx context.Context, kind Kind, b domain.Booking, attachment *ticket.Artifact) error {
	msg, err := d.Build(kind, b, attachment)
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s for booking %d: %w", kind, b.ID, err)
	}
	return nil
}

// Build renders the message for kind without sending it.
func (d *Dispatcher) Build(kind Kind, b domain.Booking, attachment *ticket.Artifact) (email.Message, error) {
	data := templateData{
		ID:        b.ID,
		FullName:  b.FullName,
		From:      b.DepartureLocation,
		To:        b.Destination,
		Date:      b.TravelDate.Format(domain.DateLayout),
		Class:     string(b.TicketClass),
		Total:     b.TotalPrice.StringFixed(2) + " " + d.currency,
		HasTicket: attachment != nil,
	}

	msg := email.Message{
		ID:   uuid.NewString(),
		From: d.from,
		To:   b.Email,
	}

	var body bytes.Buffer
	switch kind {
	case KindConfirmation:
		msg.Subject = fmt.Sprintf("Booking Confirmation - %s to %s", b.DepartureLocation, b.Destination)
		if err := confirmationTemplate.Execute(&body, data); err != nil {
			return email.Message{}, fmt.Errorf("render confirmation: %w", err)
		}
	case KindCancellation:
		msg.Subject = "SmartTicket Booking Cancellation"
		if err := cancellationTemplate.Execute(&body, data); err != nil {
			return email.Message{}, fmt.Errorf("render cancellation: %w", err)
		}
	default:
		return email.Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}
	msg.HTMLBody = body.String()

	if attachment != nil {
		msg.Attachment = &email.Attachment{
			FileName:    attachment.FileName,
			ContentType: attachment.ContentType,
			Content:     attachment.Content,
		}
	}
	return msg, nil
}

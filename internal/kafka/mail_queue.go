package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Domenick1991/smartticket/internal/email"
	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// MailQueue is an email.Sender that enqueues messages for the worker.
// A successful Send means the message was accepted by the broker, not delivered.
type MailQueue struct {
	publisher Publisher
	topic     string
}

func NewMailQueue(publisher Publisher, topic string) *MailQueue {
	return &MailQueue{publisher: publisher, topic: topic}
}

func (q *MailQueue) Send(ctx context.Context, msg email.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := q.publisher.Publish(ctx, q.topic, msg.ID, msg); err != nil {
		return fmt.Errorf("enqueue mail %s: %w", msg.ID, err)
	}
	return nil
}

// MailDeliveryHandler decodes queued messages and delivers them with sender.
// Undecodable messages and failed deliveries are logged and dropped.
func MailDeliveryHandler(sender email.Sender, log logger.Logger) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, m kafka.Message) error {
		var msg email.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			log.Error("decode mail message", "offset", m.Offset, "error", err)
			return nil
		}
		if err := sender.Send(ctx, msg); err != nil {
			log.Error("mail delivery failed, dropping", "id", msg.ID, "to", msg.To, "error", err)
			return nil
		}
		return nil
	}
}

var _ email.Sender = (*MailQueue)(nil)

package events

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
)

// Publisher emits a message.sent event after a message is durably stored.
// The notification service consumes these; a publish failure never fails the
// ingest.
type Publisher interface {
	PublishMessageSent(ctx context.Context, m *domain.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafkago.Writer
}

func NewKafkaPublisher(brokers []string, topic string) Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &kafkaPublisher{writer: w}
}

func (p *kafkaPublisher) PublishMessageSent(ctx context.Context, m *domain.Message) error {
	b, err := json.Marshal(map[string]any{
		"event":       "message.sent",
		"message_id":  m.ID,
		"chat_key":    m.ChatKey,
		"chat_kind":   m.ChatKind,
		"sender_id":   m.SenderID,
		"receiver_id": m.ReceiverID,
		"created_at":  m.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(m.ChatKey),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards events; used when no broker is configured.
type Noop struct{}

func (Noop) PublishMessageSent(context.Context, *domain.Message) error { return nil }
func (Noop) Close() error                                              { return nil }

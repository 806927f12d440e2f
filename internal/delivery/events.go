package delivery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/rackup-app/messaging/internal/domain"
	"github.com/rackup-app/messaging/internal/observability"
)

// EventPublisher emits message-sent events for downstream consumers
// (notifications, analytics). Emission is fire-and-forget: a lost event never
// fails a send.
type EventPublisher struct {
	writer *kafka.Writer
}

type messageSentEvent struct {
	EventType string          `json:"eventType"`
	Message   *domain.Message `json:"message"`
	EmittedAt time.Time       `json:"emittedAt"`
}

func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	return &EventPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   topic,
		}),
	}
}

func (p *EventPublisher) Emit(msg *domain.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		log := observability.GetLogger(ctx)

		value, err := json.Marshal(messageSentEvent{
			EventType: "MESSAGE_SENT",
			Message:   msg,
			EmittedAt: time.Now().UTC(),
		})
		if err != nil {
			log.Error("event marshal failed", zap.String("message_id", msg.ID), zap.Error(err))
			return
		}

		// Key by conversation so consumers see per-conversation order.
		err = p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(msg.ConversationID),
			Value: value,
			Time:  time.Now(),
		})
		if err != nil {
			log.Warn("event publish failed",
				zap.String("conversation_id", msg.ConversationID),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}()
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

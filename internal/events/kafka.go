package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher writes status facts keyed by order id so that per-order
// ordering is preserved across partitions.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		logger: log,
	}
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, payload StatusChangedPayload) {
	env := Envelope{
		EventID:    uuid.NewString(),
		EventType:  EventOrderStatusChanged,
		OccurredAt: time.Now(),
		Payload:    payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("failed to marshal status event", zap.Error(err))
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.OrderID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		// Facts are best-effort: the order state is already committed
		// and must not be rolled back over a broker hiccup.
		p.logger.Error("failed to publish status event",
			zap.String("order_id", payload.OrderID),
			zap.Error(err),
		)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Package events publishes neutral order facts for downstream consumers
// (notification formatting and delivery live entirely outside this
// service).
package events

import (
	"context"
	"time"

	"github.com/greenbasket/groupbuy-service/internal/model"
)

const EventOrderStatusChanged = "OrderStatusChanged"

type Envelope struct {
	EventID    string               `json:"event_id"`
	EventType  string               `json:"event_type"`
	OccurredAt time.Time            `json:"occurred_at"`
	Payload    StatusChangedPayload `json:"payload"`
}

type StatusChangedPayload struct {
	OrderID   string            `json:"order_id"`
	UserID    string            `json:"user_id"`
	NewStatus model.OrderStatus `json:"new_status"`
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, payload StatusChangedPayload)
}

// NopPublisher drops everything; used in tests and when Kafka is not
// configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, StatusChangedPayload) {}

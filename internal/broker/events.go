package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ecofinds/internal/models"
	"ecofinds/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrMalformedEvent marks payloads that cannot be decoded. Retrying them is
// pointless.
var ErrMalformedEvent = errors.New("malformed event")

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// EventHandler routes incoming events to registered callbacks.
type EventHandler struct {
	onOrderPlaced        func(context.Context, *models.OrderPlacedEvent) error
	onOrderStatusChanged func(context.Context, *models.OrderStatusChangedEvent) error
}

func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

func (eh *EventHandler) OnOrderPlaced(handler func(context.Context, *models.OrderPlacedEvent) error) {
	eh.onOrderPlaced = handler
}

func (eh *EventHandler) OnOrderStatusChanged(handler func(context.Context, *models.OrderStatusChangedEvent) error) {
	eh.onOrderStatusChanged = handler
}

// HandleMessage routes messages to appropriate handlers. Unknown event types
// and types without a callback are acknowledged and dropped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("%w: base event: %v", ErrMalformedEvent, err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderPlaced:
		if eh.onOrderPlaced != nil {
			var event models.OrderPlacedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: OrderPlaced: %v", ErrMalformedEvent, err)
			}
			return eh.onOrderPlaced(ctx, &event)
		}

	case models.EventTypeOrderStatusChanged:
		if eh.onOrderStatusChanged != nil {
			var event models.OrderStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: OrderStatusChanged: %v", ErrMalformedEvent, err)
			}
			return eh.onOrderStatusChanged(ctx, &event)
		}

	default:
		logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}

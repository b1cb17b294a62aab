package broker

import (
	"context"
	"encoding/json"
	"testing"

	"ecofinds/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestHandleMessageRoutesOrderPlaced(t *testing.T) {
	eh := NewEventHandler()

	var got *models.OrderPlacedEvent
	eh.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		got = e
		return nil
	})
	eh.OnOrderStatusChanged(func(ctx context.Context, e *models.OrderStatusChangedEvent) error {
		t.Fatal("status handler must not run")
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, models.OrderPlacedEvent{
		BaseEvent:   models.BaseEvent{EventID: "e1", EventType: models.EventTypeOrderPlaced},
		OrderID:     7,
		SellerID:    3,
		TotalAmount: decimal.RequireFromString("12.50"),
	}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.OrderID)
	assert.Equal(t, "12.5", got.TotalAmount.String())
}

func TestHandleMessageRoutesStatusChanged(t *testing.T) {
	eh := NewEventHandler()

	var got *models.OrderStatusChangedEvent
	eh.OnOrderStatusChanged(func(ctx context.Context, e *models.OrderStatusChangedEvent) error {
		got = e
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{EventID: "e2", EventType: models.EventTypeOrderStatusChanged},
		OrderID:   9,
		OldStatus: models.OrderStatusPending,
		NewStatus: models.OrderStatusConfirmed,
	}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.OrderStatusConfirmed, got.NewStatus)
}

func TestHandleMessageUnknownTypeIsDropped(t *testing.T) {
	eh := NewEventHandler()
	err := eh.HandleMessage(context.Background(), message(t, models.BaseEvent{EventType: "SOMETHING_ELSE"}))
	assert.NoError(t, err)
}

func TestHandleMessageMalformed(t *testing.T) {
	eh := NewEventHandler()
	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestOrderKey(t *testing.T) {
	assert.Equal(t, "order-15", orderKey(15))
}

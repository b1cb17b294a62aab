package worker

import (
	"context"

	"ecofinds/internal/broker"
	"ecofinds/internal/service"
	"ecofinds/internal/util"
)

// NotificationWorker turns order events into user notifications.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

func NewNotificationWorker(consumer *broker.Consumer, notifications *service.NotificationService) *NotificationWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderPlaced(notifications.HandleOrderPlaced)
	eventHandler.OnOrderStatusChanged(notifications.HandleOrderStatusChanged)

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start blocks until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

func (w *NotificationWorker) Stop() error {
	util.GetLogger().Info("Stopping notification worker")
	return w.consumer.Close()
}

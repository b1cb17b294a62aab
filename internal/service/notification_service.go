package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecofinds/internal/models"
	"ecofinds/internal/store"
	"ecofinds/internal/util"

	"go.uber.org/zap"
)

const notificationListLimit = 50

// NotificationService writes notifications from order events and serves
// them to users.
type NotificationService struct {
	notifications NotificationRepository
	logger        *zap.Logger
}

func NewNotificationService(notifications NotificationRepository) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		logger:        util.GetLogger(),
	}
}

// HandleOrderPlaced tells the seller about a sale.
func (s *NotificationService) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleOrderPlaced")
	defer span.End()

	titles := make([]string, 0, len(event.Items))
	for _, item := range event.Items {
		titles = append(titles, item.Title)
	}

	orderID := event.OrderID
	n := models.Notification{
		UserID: event.SellerID,
		Kind:   models.NotificationSale,
		Message: fmt.Sprintf("You sold %s (order %s, total %s)",
			strings.Join(titles, ", "), event.OrderNumber, event.TotalAmount.StringFixed(2)),
		OrderID: &orderID,
	}

	return s.save(ctx, event.EventID, event.EventType, n)
}

// HandleOrderStatusChanged tells the other party of the order about the new
// status: the buyer when the seller acted, the seller when the buyer
// cancelled.
func (s *NotificationService) HandleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.HandleOrderStatusChanged")
	defer span.End()

	recipient := event.BuyerID
	if event.ChangedBy == event.BuyerID {
		recipient = event.SellerID
	}

	orderID := event.OrderID
	n := models.Notification{
		UserID:  recipient,
		Kind:    models.NotificationStatus,
		Message: fmt.Sprintf("Order %s is now %s", event.OrderNumber, event.NewStatus),
		OrderID: &orderID,
	}

	return s.save(ctx, event.EventID, event.EventType, n)
}

func (s *NotificationService) save(ctx context.Context, eventID, eventType string, n models.Notification) error {
	created, err := s.notifications.SaveEventNotifications(ctx, eventID, eventType, []models.Notification{n})
	if err != nil {
		return err
	}
	if !created {
		s.logger.Info("Event already processed, skipping", zap.String("event_id", eventID))
		return nil
	}
	util.NotificationsCreatedTotal.WithLabelValues(n.Kind).Inc()
	return nil
}

// List returns the user's most recent notifications.
func (s *NotificationService) List(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.notifications.ListNotifications(ctx, userID, notificationListLimit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	err := s.notifications.MarkNotificationRead(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

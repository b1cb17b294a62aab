package service

import (
	"context"
	"errors"
	"time"

	"ecofinds/internal/models"
	"ecofinds/internal/store"
	"ecofinds/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Order roles for listing.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// OrderService handles order history and the order status lifecycle.
type OrderService struct {
	orders    OrderRepository
	publisher EventPublisher
	logger    *zap.Logger
}

func NewOrderService(orders OrderRepository, publisher EventPublisher) *OrderService {
	return &OrderService{
		orders:    orders,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// sellerTransitions are the forward moves only the seller may make.
var sellerTransitions = map[string]string{
	models.OrderStatusPending:   models.OrderStatusConfirmed,
	models.OrderStatusConfirmed: models.OrderStatusShipped,
	models.OrderStatusShipped:   models.OrderStatusDelivered,
}

func cancellable(status string) bool {
	return status == models.OrderStatusPending || status == models.OrderStatusConfirmed
}

func validStatus(status string) bool {
	switch status {
	case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
		return true
	}
	return false
}

// List returns the caller's orders as buyer (the default) or as seller.
func (s *OrderService) List(ctx context.Context, userID int64, role string) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.List")
	defer span.End()

	switch role {
	case "", RoleBuyer:
		return s.orders.ListOrdersByBuyer(ctx, userID)
	case RoleSeller:
		return s.orders.ListOrdersBySeller(ctx, userID)
	default:
		return nil, validationError("type must be buyer or seller")
	}
}

// Get returns an order to its buyer or seller.
func (s *OrderService) Get(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Get")
	defer span.End()

	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	if order.BuyerID != userID && order.SellerID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

// UpdateStatus moves an order along PENDING -> CONFIRMED -> SHIPPED ->
// DELIVERED (seller only) or cancels it from PENDING or CONFIRMED (buyer or
// seller). Cancelling puts the listings back on sale.
func (s *OrderService) UpdateStatus(ctx context.Context, userID, orderID int64, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !validStatus(status) {
		return nil, validationError("unknown order status")
	}

	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	isSeller := order.SellerID == userID

	if status == models.OrderStatusCancelled {
		if !cancellable(from) {
			return nil, ErrInvalidTransition
		}
	} else {
		if !isSeller {
			return nil, ErrForbidden
		}
		if sellerTransitions[from] != status {
			return nil, ErrInvalidTransition
		}
	}

	relist := status == models.OrderStatusCancelled
	if err := s.orders.TransitionOrder(ctx, orderID, from, status, relist); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrInvalidTransition
		}
		util.FailSpan(span, err)
		return nil, err
	}

	util.OrderStatusChangesTotal.WithLabelValues(status).Inc()
	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", from),
		zap.String("to", status),
		zap.Int64("changed_by", userID))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		OldStatus:   from,
		NewStatus:   status,
		ChangedBy:   userID,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}

	return s.Get(ctx, userID, orderID)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published once per order created by a checkout.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	BuyerID     int64           `json:"buyer_id"`
	SellerID    int64           `json:"seller_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent is published after a seller or buyer moves an
// order to a new status.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	BuyerID     int64  `json:"buyer_id"`
	SellerID    int64  `json:"seller_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	ChangedBy   int64  `json:"changed_by"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ListingID int64           `json:"listing_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

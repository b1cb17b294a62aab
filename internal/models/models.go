package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// User is a marketplace account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Bio          string    `db:"bio" json:"bio"`
	Location     string    `db:"location" json:"location"`
	AvatarURL    string    `db:"avatar_url" json:"avatar_url"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Profile is a user plus marketplace activity counters.
type Profile struct {
	User
	ActiveListings int `db:"active_listings" json:"active_listings"`
	SoldListings   int `db:"sold_listings" json:"sold_listings"`
	Purchases      int `db:"purchases" json:"purchases"`
}

type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description"`
}

// Condition is the wear grade of a second-hand item.
type Condition string

const (
	ConditionExcellent Condition = "EXCELLENT"
	ConditionVeryGood  Condition = "VERY_GOOD"
	ConditionGood      Condition = "GOOD"
	ConditionFair      Condition = "FAIR"
	ConditionPoor      Condition = "POOR"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionVeryGood, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Listing is a seller's product offering in the catalog.
type Listing struct {
	ID          int64           `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Condition   Condition       `db:"condition" json:"condition"`
	Brand       *string         `db:"brand" json:"brand,omitempty"`
	Size        *string         `db:"size" json:"size,omitempty"`
	Color       *string         `db:"color" json:"color,omitempty"`
	Images      pq.StringArray  `db:"images" json:"images"`
	SellerID    int64           `db:"seller_id" json:"seller_id"`
	CategoryID  int64           `db:"category_id" json:"category_id"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	IsSold      bool            `db:"is_sold" json:"is_sold"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Available reports whether the listing can still be bought.
func (l *Listing) Available() bool {
	return l.IsActive && !l.IsSold
}

// SellerSnapshot is the public part of a seller embedded in listing views.
type SellerSnapshot struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
	Location  string `db:"location" json:"location"`
}

type CategoryRef struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// ListingView is a listing joined with its seller and category.
type ListingView struct {
	Listing
	Seller   SellerSnapshot `db:"seller" json:"seller"`
	Category CategoryRef    `db:"category" json:"category"`
}

type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ListingID int64     `db:"listing_id" json:"listing_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MaxCartQuantity bounds the quantity of one cart row.
const MaxCartQuantity = 99

// CartLine is a cart item joined with the listing it points at.
type CartLine struct {
	CartItem
	Listing ListingView `db:"listing" json:"listing"`
}

// LineTotal is price * quantity.
func (l *CartLine) LineTotal() decimal.Decimal {
	return l.Listing.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderStatus values
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// Order is a single-seller purchase record produced at checkout.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	BuyerID         int64           `db:"buyer_id" json:"buyer_id"`
	SellerID        int64           `db:"seller_id" json:"seller_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	Status          string          `db:"status" json:"status"`
	CheckoutKey     string          `db:"checkout_key" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	Items           []OrderItem     `db:"-" json:"items"`
}

// OrderItem keeps the price paid at checkout, independent of later edits to
// the listing.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ListingID int64           `db:"listing_id" json:"listing_id"`
	Title     string          `db:"title" json:"title"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// Notification kinds
const (
	NotificationSale   = "SALE"
	NotificationStatus = "ORDER_STATUS"
)

type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	Message   string    `db:"message" json:"message"`
	OrderID   *int64    `db:"order_id" json:"order_id,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Listing sort fields accepted by the query engine.
const (
	SortByCreatedAt = "created_at"
	SortByPrice     = "price"
	SortByTitle     = "title"
)

// ListingFilter drives the catalog search. Nil price bounds are open.
type ListingFilter struct {
	Search       string
	CategorySlug string
	Condition    Condition
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Page         int
	Limit        int
	SortBy       string
	SortDesc     bool
}

// Pagination is returned alongside a page of listings.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

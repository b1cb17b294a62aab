package service

import (
	"context"
	"time"

	"ecofinds/internal/models"
)

// The interfaces below are the slices of *store.Store, *redisclient.Client
// and *broker.EventPublisher each service needs.

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	GetProfile(ctx context.Context, id int64) (*models.Profile, error)
}

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
}

type ListingRepository interface {
	SearchListings(ctx context.Context, f models.ListingFilter) ([]models.ListingView, int, error)
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id int64) (*models.ListingView, error)
	ListListingsBySeller(ctx context.Context, sellerID int64) ([]models.ListingView, error)
	UpdateListing(ctx context.Context, l *models.Listing) error
	DeleteListing(ctx context.Context, id int64) (bool, error)
}

type CartRepository interface {
	AddToCart(ctx context.Context, userID, listingID int64, quantity int) (*models.CartItem, error)
	GetCartItem(ctx context.Context, id int64) (*models.CartItem, error)
	SetCartItemQuantity(ctx context.Context, id int64, quantity int) (*models.CartItem, error)
	DeleteCartItem(ctx context.Context, id int64) error
	ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error)
	GetCartLines(ctx context.Context, userID int64, ids []int64) ([]models.CartLine, error)
}

type OrderRepository interface {
	PlaceOrders(ctx context.Context, buyerID int64, orders []*models.Order, cartItemIDs []int64) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByCheckoutKey(ctx context.Context, buyerID int64, key string) ([]models.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error)
	ListOrdersBySeller(ctx context.Context, sellerID int64) ([]models.Order, error)
	TransitionOrder(ctx context.Context, orderID int64, from, to string, relist bool) error
}

type NotificationRepository interface {
	SaveEventNotifications(ctx context.Context, eventID, eventType string, notifications []models.Notification) (bool, error)
	ListNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) error
}

// ListingLocker holds short-lived claims on listings while a checkout runs.
type ListingLocker interface {
	ClaimListings(ctx context.Context, listingIDs []int64, owner string, ttl time.Duration) (bool, error)
	ReleaseListings(ctx context.Context, listingIDs []int64, owner string) error
}

// TokenRevoker remembers logged-out token ids until they expire.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

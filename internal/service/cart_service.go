package service

import (
	"context"
	"errors"

	"ecofinds/internal/models"
	"ecofinds/internal/store"
	"ecofinds/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService keeps each user's listing -> quantity map.
type CartService struct {
	cart     CartRepository
	listings ListingRepository
	logger   *zap.Logger
}

func NewCartService(cart CartRepository, listings ListingRepository) *CartService {
	return &CartService{
		cart:     cart,
		listings: listings,
		logger:   util.GetLogger(),
	}
}

type AddToCartRequest struct {
	ListingID int64 `json:"listing_id" binding:"required"`
	Quantity  *int  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// Cart is the caller's cart with a subtotal rounded to cents.
type Cart struct {
	Items []models.CartLine `json:"cartItems"`
	Total string            `json:"total"`
	Count int               `json:"count"`
}

// AddItem puts a listing into the cart, adding to the quantity already
// there.
func (s *CartService) AddItem(ctx context.Context, userID, listingID int64, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if !validQuantity(quantity) {
		util.CartAddsTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, ErrInvalidQuantity
	}

	listing, err := s.listings.GetListing(ctx, listingID)
	if errors.Is(err, store.ErrNotFound) {
		util.CartAddsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrListingNotFound
	}
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	if !listing.Available() || listing.SellerID == userID {
		util.CartAddsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidCartOperation
	}

	item, err := s.cart.AddToCart(ctx, userID, listingID, quantity)
	if errors.Is(err, store.ErrLimitExceeded) {
		util.CartAddsTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, ErrInvalidQuantity
	}
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	util.CartAddsTotal.WithLabelValues("success").Inc()
	return item, nil
}

func validQuantity(q int) bool {
	return q >= 1 && q <= models.MaxCartQuantity
}

// ownedItem returns ErrForbidden for both missing items and items of other
// users so callers cannot probe for ids.
func (s *CartService) ownedItem(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	item, err := s.cart.GetCartItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrForbidden
	}
	return item, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if !validQuantity(quantity) {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	item, err := s.cart.SetCartItemQuantity(ctx, itemID, quantity)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}

	err := s.cart.DeleteCartItem(ctx, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrForbidden
	}
	return err
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	lines, err := s.cart.ListCartLines(ctx, userID)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	return &Cart{
		Items: lines,
		Total: subtotal(lines).StringFixed(2),
		Count: len(lines),
	}, nil
}

func subtotal(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].LineTotal())
	}
	return total
}

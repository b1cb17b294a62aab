package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ecofinds/internal/models"
	"ecofinds/internal/store"
	"ecofinds/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutService turns cart items into one order per seller.
type CheckoutService struct {
	cart      CartRepository
	orders    OrderRepository
	locker    ListingLocker
	publisher EventPublisher
	claimTTL  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewCheckoutService(
	cart CartRepository,
	orders OrderRepository,
	locker ListingLocker,
	publisher EventPublisher,
	claimTTL time.Duration,
) *CheckoutService {
	return &CheckoutService{
		cart:      cart,
		orders:    orders,
		locker:    locker,
		publisher: publisher,
		claimTTL:  claimTTL,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
}

type CheckoutRequest struct {
	CartItemIDs     []int64 `json:"cart_item_ids" binding:"required"`
	ShippingAddress string  `json:"shipping_address" binding:"required"`
	PaymentMethod   string  `json:"payment_method" binding:"required"`
	IdempotencyKey  string  `json:"-"`
}

type CheckoutResult struct {
	Orders []models.Order
	// Replayed is set when the orders were created by an earlier request
	// with the same idempotency key.
	Replayed bool
}

// Checkout places the orders for the caller's selected cart items. Items that
// do not exist or belong to someone else are ignored. Either every order is
// created, every listing marked sold and every consumed cart row removed, or
// nothing changes.
func (s *CheckoutService) Checkout(ctx context.Context, buyerID int64, req *CheckoutRequest) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	address := strings.TrimSpace(req.ShippingAddress)
	if address == "" {
		return nil, validationError("shipping address is required")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, validationError("payment method is required")
	}

	clientKey := strings.TrimSpace(req.IdempotencyKey)
	key := clientKey
	if key != "" {
		replay, err := s.replay(ctx, buyerID, key)
		if err != nil {
			util.FailSpan(span, err)
			return nil, err
		}
		if replay != nil {
			return replay, nil
		}
	} else {
		key = uuid.New().String()
	}

	ids := uniqueIDs(req.CartItemIDs)
	lines, err := s.cart.GetCartLines(ctx, buyerID, ids)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	lines = orderByIDs(lines, ids)
	if len(lines) == 0 {
		util.CheckoutsTotal.WithLabelValues("empty").Inc()
		return s.lostRace(ctx, buyerID, clientKey, ErrEmptyCheckout)
	}

	listingIDs := make([]int64, 0, len(lines))
	cartItemIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		if !line.Listing.Available() || line.Listing.SellerID == buyerID {
			util.CheckoutsTotal.WithLabelValues("unavailable").Inc()
			return s.lostRace(ctx, buyerID, clientKey, ErrListingUnavailable)
		}
		listingIDs = append(listingIDs, line.ListingID)
		cartItemIDs = append(cartItemIDs, line.ID)
	}

	// Requests retried with the same key share the claim owner, so a retry
	// racing the original reaches the database and is resolved there.
	owner := fmt.Sprintf("%d:%s", buyerID, key)
	claimed, err := s.locker.ClaimListings(ctx, listingIDs, owner, s.claimTTL)
	if err != nil {
		util.ListingClaimsFailed.WithLabelValues("error").Inc()
		util.FailSpan(span, err)
		return nil, err
	}
	if !claimed {
		util.ListingClaimsFailed.WithLabelValues("held").Inc()
		util.CheckoutsTotal.WithLabelValues("unavailable").Inc()
		return nil, ErrListingUnavailable
	}
	defer func() {
		// Release even when the request context is already cancelled.
		if err := s.locker.ReleaseListings(context.WithoutCancel(ctx), listingIDs, owner); err != nil {
			s.logger.Warn("Failed to release listing claims", zap.Error(err))
		}
	}()

	orders := s.buildOrders(buyerID, address, maskPaymentMethod(req.PaymentMethod), key, lines)

	if err := s.orders.PlaceOrders(ctx, buyerID, orders, cartItemIDs); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return s.lostRace(ctx, buyerID, clientKey, fmt.Errorf("failed to place orders: %w", err))
		case errors.Is(err, store.ErrConflict):
			util.CheckoutsTotal.WithLabelValues("unavailable").Inc()
			return s.lostRace(ctx, buyerID, clientKey, ErrListingUnavailable)
		}
		util.CheckoutsTotal.WithLabelValues("error").Inc()
		util.FailSpan(span, err)
		return nil, fmt.Errorf("failed to place orders: %w", err)
	}

	result := &CheckoutResult{Orders: make([]models.Order, 0, len(orders))}
	for _, order := range orders {
		result.Orders = append(result.Orders, *order)
		s.publishOrderPlaced(ctx, order)
	}

	util.CheckoutsTotal.WithLabelValues("success").Inc()
	util.OrdersCreatedTotal.Add(float64(len(orders)))
	s.logger.Info("Checkout completed",
		zap.Int64("buyer_id", buyerID),
		zap.Int("orders", len(orders)),
		zap.String("checkout_key", key))

	return result, nil
}

// replay returns the orders already placed under key, or nil when there are
// none.
func (s *CheckoutService) replay(ctx context.Context, buyerID int64, key string) (*CheckoutResult, error) {
	existing, err := s.orders.ListOrdersByCheckoutKey(ctx, buyerID, key)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}
	s.logger.Info("Duplicate checkout request detected",
		zap.String("idempotency_key", key),
		zap.Int("orders", len(existing)))
	util.CheckoutsTotal.WithLabelValues("replayed").Inc()
	return &CheckoutResult{Orders: existing, Replayed: true}, nil
}

// lostRace resolves a failed checkout that carried a client key. A concurrent
// request with the same key may have committed in the meantime, consuming
// the cart rows and listings; its orders are returned instead of failure.
func (s *CheckoutService) lostRace(ctx context.Context, buyerID int64, clientKey string, failure error) (*CheckoutResult, error) {
	if clientKey == "" {
		return nil, failure
	}
	replay, err := s.replay(ctx, buyerID, clientKey)
	if err != nil {
		return nil, err
	}
	if replay == nil {
		return nil, failure
	}
	return replay, nil
}

// sellerGroup is the cart lines of one seller.
type sellerGroup struct {
	sellerID int64
	lines    []models.CartLine
}

// splitBySeller partitions lines by seller, keeping sellers in order of
// first appearance and lines in input order.
func splitBySeller(lines []models.CartLine) []sellerGroup {
	var groups []sellerGroup
	index := make(map[int64]int)
	for _, line := range lines {
		seller := line.Listing.SellerID
		i, ok := index[seller]
		if !ok {
			i = len(groups)
			index[seller] = i
			groups = append(groups, sellerGroup{sellerID: seller})
		}
		groups[i].lines = append(groups[i].lines, line)
	}
	return groups
}

func (s *CheckoutService) buildOrders(buyerID int64, address, payment, key string, lines []models.CartLine) []*models.Order {
	groups := splitBySeller(lines)
	orders := make([]*models.Order, 0, len(groups))
	now := s.now()

	for _, g := range groups {
		order := &models.Order{
			OrderNumber:     newOrderNumber(now),
			BuyerID:         buyerID,
			SellerID:        g.sellerID,
			TotalAmount:     decimal.Zero,
			ShippingAddress: address,
			PaymentMethod:   payment,
			Status:          models.OrderStatusPending,
			CheckoutKey:     key,
			Items:           make([]models.OrderItem, 0, len(g.lines)),
		}
		for i := range g.lines {
			line := &g.lines[i]
			order.TotalAmount = order.TotalAmount.Add(line.LineTotal())
			order.Items = append(order.Items, models.OrderItem{
				ListingID: line.ListingID,
				Title:     line.Listing.Title,
				Quantity:  line.Quantity,
				Price:     line.Listing.Price,
			})
		}
		orders = append(orders, order)
	}
	return orders
}

func (s *CheckoutService) publishOrderPlaced(ctx context.Context, order *models.Order) {
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			ListingID: item.ListingID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		TotalAmount: order.TotalAmount,
		Items:       items,
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}

// newOrderNumber renders EF-<UTC timestamp>-<8 hex chars>.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("EF-%s-%s", now.UTC().Format("20060102150405"), suffix)
}

// maskPaymentMethod keeps only the last four digits of card-like input.
// Anything else is stored as given.
func maskPaymentMethod(method string) string {
	method = strings.TrimSpace(method)
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, method)

	if len(digits) < 12 {
		return method
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return method
		}
	}
	return "**** **** **** " + digits[len(digits)-4:]
}

// orderByIDs sorts lines into the order their ids were submitted in.
func orderByIDs(lines []models.CartLine, ids []int64) []models.CartLine {
	pos := make(map[int64]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return pos[lines[i].ID] < pos[lines[j].ID]
	})
	return lines
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"ecofinds/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutReq(ids ...int64) *CheckoutRequest {
	return &CheckoutRequest{
		CartItemIDs:     ids,
		ShippingAddress: "1 Main St",
		PaymentMethod:   "4111 1111 1111 1234",
	}
}

func TestCheckoutSingleSeller(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	widget := f.listing(t, seller.ID, "Widget", "50.00")
	item := f.addToCart(t, buyer.ID, widget.ID, 2)

	res, err := f.checkout.Checkout(ctx, buyer.ID, checkoutReq(item.ID))
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)

	order := res.Orders[0]
	assert.Equal(t, "100.00", order.TotalAmount.StringFixed(2))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, seller.ID, order.SellerID)
	assert.Equal(t, "**** **** **** 1234", order.PaymentMethod)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "50", order.Items[0].Price.String())

	assert.True(t, f.store.Listings[widget.ID].IsSold)

	cart, err := f.cart.GetCart(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.Count)

	assert.Len(t, f.publisher.Placed, 1)
	assert.Empty(t, f.locker.Held, "claims are released after checkout")
}

func TestCheckoutSplitsBySeller(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	buyer := f.user(t, "buyer")

	a1 := f.listing(t, alice.ID, "A1", "10.00")
	b1 := f.listing(t, bob.ID, "B1", "7.25")
	a2 := f.listing(t, alice.ID, "A2", "5.50")

	i1 := f.addToCart(t, buyer.ID, a1.ID, 1)
	i2 := f.addToCart(t, buyer.ID, b1.ID, 2)
	i3 := f.addToCart(t, buyer.ID, a2.ID, 3)

	res, err := f.checkout.Checkout(ctx, buyer.ID, checkoutReq(i1.ID, i2.ID, i3.ID))
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)

	first, second := res.Orders[0], res.Orders[1]
	assert.Equal(t, alice.ID, first.SellerID)
	assert.Equal(t, "26.50", first.TotalAmount.StringFixed(2))
	assert.Len(t, first.Items, 2)

	assert.Equal(t, bob.ID, second.SellerID)
	assert.Equal(t, "14.50", second.TotalAmount.StringFixed(2))
	assert.Len(t, second.Items, 1)

	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	for _, o := range res.Orders {
		for _, it := range o.Items {
			assert.True(t, f.store.Listings[it.ListingID].IsSold)
		}
	}
	assert.Empty(t, f.store.Cart)
}

func TestCheckoutIgnoresForeignAndUnknownItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	other := f.user(t, "other")

	mine := f.listing(t, seller.ID, "Mine", "3.00")
	theirs := f.listing(t, seller.ID, "Theirs", "4.00")
	myItem := f.addToCart(t, buyer.ID, mine.ID, 1)
	theirItem := f.addToCart(t, other.ID, theirs.ID, 1)

	res, err := f.checkout.Checkout(ctx, buyer.ID, checkoutReq(myItem.ID, theirItem.ID, 424242))
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Len(t, res.Orders[0].Items, 1)

	assert.False(t, f.store.Listings[theirs.ID].IsSold)
	_, stillThere := f.store.Cart[theirItem.ID]
	assert.True(t, stillThere)

	_, err = f.checkout.Checkout(ctx, buyer.ID, checkoutReq(theirItem.ID))
	assert.ErrorIs(t, err, ErrEmptyCheckout)

	_, err = f.checkout.Checkout(ctx, buyer.ID, checkoutReq())
	assert.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestCheckoutUnavailableListingChangesNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")

	ok := f.listing(t, seller.ID, "Fine", "1.00")
	gone := f.listing(t, seller.ID, "Gone", "1.00")
	i1 := f.addToCart(t, buyer.ID, ok.ID, 1)
	i2 := f.addToCart(t, buyer.ID, gone.ID, 1)
	f.store.Listings[gone.ID].IsSold = true

	_, err := f.checkout.Checkout(ctx, buyer.ID, checkoutReq(i1.ID, i2.ID))
	assert.ErrorIs(t, err, ErrListingUnavailable)

	assert.False(t, f.store.Listings[ok.ID].IsSold)
	assert.Len(t, f.store.Cart, 2)
	assert.Empty(t, f.store.Orders)
}

func TestCheckoutClaimHeldByAnotherCheckout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Hot item", "9.99")
	item := f.addToCart(t, buyer.ID, l.ID, 1)

	f.locker.Held[l.ID] = "someone-else"

	_, err := f.checkout.Checkout(ctx, buyer.ID, checkoutReq(item.ID))
	assert.ErrorIs(t, err, ErrListingUnavailable)
	assert.Equal(t, "someone-else", f.locker.Held[l.ID])
	assert.Empty(t, f.store.Orders)
}

func TestCheckoutIdempotentReplay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Lamp", "12.00")
	item := f.addToCart(t, buyer.ID, l.ID, 1)

	req := checkoutReq(item.ID)
	req.IdempotencyKey = "retry-1"

	first, err := f.checkout.Checkout(ctx, buyer.ID, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.checkout.Checkout(ctx, buyer.ID, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, first.Orders[0].ID, second.Orders[0].ID)
	assert.Len(t, f.store.Orders, 1)
}

func TestCheckoutConcurrentRetryWithSameKeyReplays(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Lamp", "12.00")
	item := f.addToCart(t, buyer.ID, l.ID, 1)

	req := checkoutReq(item.ID)
	req.IdempotencyKey = "double-click"

	// The competing request commits after this one read the cart but before
	// it claims the listings.
	var first *CheckoutResult
	f.locker.BeforeClaim = func() {
		var err error
		first, err = f.checkout.Checkout(ctx, buyer.ID, req)
		require.NoError(t, err)
	}

	second, err := f.checkout.Checkout(ctx, buyer.ID, req)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, first.Orders[0].ID, second.Orders[0].ID)
	assert.Len(t, f.store.Orders, 1)
	assert.Empty(t, f.locker.Held)
}

func TestCheckoutSameKeyClaimIsReentrant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Chair", "30.00")
	item := f.addToCart(t, buyer.ID, l.ID, 1)

	req := checkoutReq(item.ID)
	req.IdempotencyKey = "k1"
	f.locker.Held[l.ID] = fmt.Sprintf("%d:%s", buyer.ID, "k1")

	res, err := f.checkout.Checkout(ctx, buyer.ID, req)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Len(t, f.store.Orders, 1)
}

func TestCheckoutDifferentKeyAfterPurchaseIsUnavailable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Desk", "80.00")
	item := f.addToCart(t, buyer.ID, l.ID, 1)

	req := checkoutReq(item.ID)
	req.IdempotencyKey = "a"
	f.locker.BeforeClaim = func() {
		other := checkoutReq(item.ID)
		other.IdempotencyKey = "b"
		_, err := f.checkout.Checkout(ctx, buyer.ID, other)
		require.NoError(t, err)
	}

	_, err := f.checkout.Checkout(ctx, buyer.ID, req)
	assert.ErrorIs(t, err, ErrListingUnavailable)
	assert.Len(t, f.store.Orders, 1)
}

func TestCheckoutPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.publisher.Err = errors.New("kafka down")
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Book", "4.00")
	item := f.addToCart(t, buyer.ID, l.ID, 1)

	res, err := f.checkout.Checkout(context.Background(), buyer.ID, checkoutReq(item.ID))
	require.NoError(t, err)
	assert.Len(t, res.Orders, 1)
}

func TestCheckoutRequiresAddress(t *testing.T) {
	f := newFixture()
	req := checkoutReq(1)
	req.ShippingAddress = "   "
	_, err := f.checkout.Checkout(context.Background(), 1, req)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestOrderNumberFormat(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	number := newOrderNumber(now)
	assert.Regexp(t, regexp.MustCompile(`^EF-20240305140709-[0-9A-F]{8}$`), number)
	assert.NotEqual(t, number, newOrderNumber(now))
}

func TestMaskPaymentMethod(t *testing.T) {
	assert.Equal(t, "**** **** **** 4242", maskPaymentMethod("4242-4242-4242-4242"))
	assert.Equal(t, "**** **** **** 1234", maskPaymentMethod(" 4111 1111 1111 1234 "))
	assert.Equal(t, "Cash on delivery", maskPaymentMethod(" Cash on delivery "))
	assert.Equal(t, "1234", maskPaymentMethod("1234"))
}

func TestSplitBySellerKeepsFirstAppearanceOrder(t *testing.T) {
	line := func(id, seller int64) models.CartLine {
		var l models.CartLine
		l.ID = id
		l.Listing.SellerID = seller
		return l
	}

	groups := splitBySeller([]models.CartLine{line(1, 7), line(2, 3), line(3, 7), line(4, 9)})
	require.Len(t, groups, 3)
	assert.Equal(t, int64(7), groups[0].sellerID)
	assert.Len(t, groups[0].lines, 2)
	assert.Equal(t, int64(3), groups[1].sellerID)
	assert.Equal(t, int64(9), groups[2].sellerID)
}

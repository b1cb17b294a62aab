package service

import (
	"context"
	"testing"

	"ecofinds/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, f *fixture) (seller, buyer *models.User, order models.Order) {
	t.Helper()
	seller = f.user(t, "seller")
	buyer = f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Bike", "120.00")
	item := f.addToCart(t, buyer.ID, l.ID, 1)

	res, err := f.checkout.Checkout(context.Background(), buyer.ID, checkoutReq(item.ID))
	require.NoError(t, err)
	return seller, buyer, res.Orders[0]
}

func TestOrderVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller, buyer, order := placeOrder(t, f)
	stranger := f.user(t, "stranger")

	_, err := f.orders.Get(ctx, buyer.ID, order.ID)
	assert.NoError(t, err)
	_, err = f.orders.Get(ctx, seller.ID, order.ID)
	assert.NoError(t, err)
	_, err = f.orders.Get(ctx, stranger.ID, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.orders.Get(ctx, buyer.ID, 9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	bought, err := f.orders.List(ctx, buyer.ID, RoleBuyer)
	require.NoError(t, err)
	assert.Len(t, bought, 1)

	sold, err := f.orders.List(ctx, seller.ID, RoleSeller)
	require.NoError(t, err)
	assert.Len(t, sold, 1)

	none, err := f.orders.List(ctx, buyer.ID, RoleSeller)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.orders.List(ctx, buyer.ID, "admin")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller, buyer, order := placeOrder(t, f)

	_, err := f.orders.UpdateStatus(ctx, buyer.ID, order.ID, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrForbidden, "only the seller moves an order forward")

	_, err = f.orders.UpdateStatus(ctx, seller.ID, order.ID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.orders.UpdateStatus(ctx, seller.ID, order.ID, "LOST")
	assert.Equal(t, KindValidation, KindOf(err))

	for _, status := range []string{models.OrderStatusConfirmed, models.OrderStatusShipped, models.OrderStatusDelivered} {
		updated, err := f.orders.UpdateStatus(ctx, seller.ID, order.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
	}

	_, err = f.orders.UpdateStatus(ctx, buyer.ID, order.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition, "delivered orders cannot be cancelled")

	require.Len(t, f.publisher.Changed, 3)
	assert.Equal(t, seller.ID, f.publisher.Changed[0].ChangedBy)
}

func TestCancelRelistsListings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, buyer, order := placeOrder(t, f)
	listingID := order.Items[0].ListingID
	require.True(t, f.store.Listings[listingID].IsSold)

	updated, err := f.orders.UpdateStatus(ctx, buyer.ID, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.False(t, f.store.Listings[listingID].IsSold)
}

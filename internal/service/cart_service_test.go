package service

import (
	"context"
	"testing"

	"ecofinds/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemAccumulates(t *testing.T) {
	f := newFixture()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Chair", "20.00")

	first := f.addToCart(t, buyer.ID, l.ID, 1)
	second := f.addToCart(t, buyer.ID, l.ID, 2)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Quantity)

	cart, err := f.cart.GetCart(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Count)
	assert.Equal(t, "60.00", cart.Total)
}

func TestAddItemRejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Chair", "20.00")

	_, err := f.cart.AddItem(ctx, seller.ID, l.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidCartOperation, "sellers cannot buy their own listings")

	_, err = f.cart.AddItem(ctx, buyer.ID, l.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.cart.AddItem(ctx, buyer.ID, 12345, 1)
	assert.ErrorIs(t, err, ErrListingNotFound)

	f.store.Listings[l.ID].IsSold = true
	_, err = f.cart.AddItem(ctx, buyer.ID, l.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidCartOperation)

	f.store.Listings[l.ID].IsSold = false
	f.store.Listings[l.ID].IsActive = false
	_, err = f.cart.AddItem(ctx, buyer.ID, l.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidCartOperation)
}

func TestUpdateQuantityOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	other := f.user(t, "other")
	l := f.listing(t, seller.ID, "Chair", "20.00")
	item := f.addToCart(t, buyer.ID, l.ID, 1)

	_, err := f.cart.UpdateQuantity(ctx, buyer.ID, item.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.cart.UpdateQuantity(ctx, other.ID, item.ID, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	// Missing ids look the same as foreign ones.
	_, err = f.cart.UpdateQuantity(ctx, buyer.ID, 9999, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.cart.UpdateQuantity(ctx, buyer.ID, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	assert.ErrorIs(t, f.cart.RemoveItem(ctx, other.ID, item.ID), ErrForbidden)
	require.NoError(t, f.cart.RemoveItem(ctx, buyer.ID, item.ID))

	cart, err := f.cart.GetCart(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.Count)
	assert.Equal(t, "0.00", cart.Total)
	assert.NotNil(t, cart.Items)
}

func TestQuantityUpperBound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	l := f.listing(t, seller.ID, "Chair", "20.00")

	_, err := f.cart.AddItem(ctx, buyer.ID, l.ID, 3_000_000_000)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	item := f.addToCart(t, buyer.ID, l.ID, models.MaxCartQuantity-1)

	// The accumulated quantity is bounded too.
	_, err = f.cart.AddItem(ctx, buyer.ID, l.ID, 2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, models.MaxCartQuantity-1, f.store.Cart[item.ID].Quantity)

	_, err = f.cart.UpdateQuantity(ctx, buyer.ID, item.ID, models.MaxCartQuantity+1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	updated, err := f.cart.UpdateQuantity(ctx, buyer.ID, item.ID, models.MaxCartQuantity)
	require.NoError(t, err)
	assert.Equal(t, models.MaxCartQuantity, updated.Quantity)
}

func TestCartTotalRounding(t *testing.T) {
	f := newFixture()
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	a := f.listing(t, seller.ID, "A", "0.10")
	b := f.listing(t, seller.ID, "B", "0.20")
	f.addToCart(t, buyer.ID, a.ID, 3)
	f.addToCart(t, buyer.ID, b.ID, 1)

	cart, err := f.cart.GetCart(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.50", cart.Total)
	assert.Equal(t, 2, cart.Count)
}

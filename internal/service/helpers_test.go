package service

import (
	"context"
	"testing"
	"time"

	"ecofinds/internal/models"
	"ecofinds/internal/service/servicetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *servicetest.Store
	locker    *servicetest.Locker
	publisher *servicetest.Publisher

	cart     *CartService
	checkout *CheckoutService
	orders   *OrderService
	listings *ListingService
}

func newFixture() *fixture {
	st := servicetest.NewStore()
	locker := servicetest.NewLocker()
	pub := &servicetest.Publisher{}
	return &fixture{
		store:     st,
		locker:    locker,
		publisher: pub,
		cart:      NewCartService(st, st),
		checkout:  NewCheckoutService(st, st, locker, pub, 30*time.Second),
		orders:    NewOrderService(st, pub),
		listings:  NewListingService(st, st, 12, 100),
	}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Email: name + "@example.com", Name: name, PasswordHash: "x"}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) listing(t *testing.T, sellerID int64, title, price string) *models.Listing {
	t.Helper()
	l := &models.Listing{
		Title:       title,
		Description: title + " description",
		Price:       decimal.RequireFromString(price),
		Condition:   models.ConditionGood,
		SellerID:    sellerID,
		CategoryID:  1,
		IsActive:    true,
	}
	require.NoError(t, f.store.CreateListing(context.Background(), l))
	return l
}

func (f *fixture) addToCart(t *testing.T, userID, listingID int64, qty int) *models.CartItem {
	t.Helper()
	item, err := f.cart.AddItem(context.Background(), userID, listingID, qty)
	require.NoError(t, err)
	return item
}

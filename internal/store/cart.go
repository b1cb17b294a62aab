package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecofinds/internal/models"

	"github.com/lib/pq"
)

const cartLineSelect = `
	SELECT ci.*,
		l.id AS "listing.id", l.title AS "listing.title", l.description AS "listing.description",
		l.price AS "listing.price", l.condition AS "listing.condition", l.brand AS "listing.brand",
		l.size AS "listing.size", l.color AS "listing.color", l.images AS "listing.images",
		l.seller_id AS "listing.seller_id", l.category_id AS "listing.category_id",
		l.is_active AS "listing.is_active", l.is_sold AS "listing.is_sold",
		l.created_at AS "listing.created_at", l.updated_at AS "listing.updated_at",
		u.id AS "listing.seller.id", u.name AS "listing.seller.name",
		u.avatar_url AS "listing.seller.avatar_url", u.location AS "listing.seller.location",
		c.id AS "listing.category.id", c.name AS "listing.category.name", c.slug AS "listing.category.slug"
	FROM cart_items ci
	JOIN listings l ON l.id = ci.listing_id
	JOIN users u ON u.id = l.seller_id
	JOIN categories c ON c.id = l.category_id`

// AddToCart inserts a cart row or, when the user already has the listing in
// the cart, adds quantity to the existing row.
func (s *Store) AddToCart(ctx context.Context, userID, listingID int64, quantity int) (*models.CartItem, error) {
	query := `
		INSERT INTO cart_items (user_id, listing_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, listing_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		WHERE cart_items.quantity + EXCLUDED.quantity <= $4
		RETURNING *`

	var item models.CartItem
	err := s.db.GetContext(ctx, &item, query, userID, listingID, quantity, models.MaxCartQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %d quantity: %w", listingID, ErrLimitExceeded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add listing %d to cart: %w", listingID, err)
	}
	return &item, nil
}

func (s *Store) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item, "SELECT * FROM cart_items WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item %d: %w", id, err)
	}
	return &item, nil
}

func (s *Store) SetCartItemQuantity(ctx context.Context, id int64, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item,
		"UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2 RETURNING *",
		quantity, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item %d: %w", id, err)
	}
	return &item, nil
}

func (s *Store) DeleteCartItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete cart item %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCartLines returns the user's whole cart, oldest entry first.
func (s *Store) ListCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := s.db.SelectContext(ctx, &lines,
		cartLineSelect+" WHERE ci.user_id = $1 ORDER BY ci.created_at, ci.id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart of user %d: %w", userID, err)
	}
	return lines, nil
}

// GetCartLines returns the subset of ids that exist and belong to userID.
// Unknown ids and other users' ids are silently dropped.
func (s *Store) GetCartLines(ctx context.Context, userID int64, ids []int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	if len(ids) == 0 {
		return lines, nil
	}
	err := s.db.SelectContext(ctx, &lines,
		cartLineSelect+" WHERE ci.user_id = $1 AND ci.id = ANY($2) ORDER BY ci.created_at, ci.id",
		userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get cart lines of user %d: %w", userID, err)
	}
	return lines, nil
}

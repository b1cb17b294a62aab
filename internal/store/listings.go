package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecofinds/internal/models"

	"github.com/jmoiron/sqlx"
)

// SearchListings returns one page of the catalog plus the total match count.
func (s *Store) SearchListings(ctx context.Context, f models.ListingFilter) ([]models.ListingView, int, error) {
	where, args := buildListingWhere(f)

	countQuery := s.db.Rebind(`
		SELECT COUNT(*)
		FROM listings l
		JOIN categories c ON c.id = l.category_id ` + where)

	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	listings := []models.ListingView{}
	if total == 0 {
		return listings, 0, nil
	}

	offset := (f.Page - 1) * f.Limit
	pageQuery := s.db.Rebind(fmt.Sprintf("%s %s %s LIMIT ? OFFSET ?",
		listingViewSelect, where, buildListingOrder(f)))
	pageArgs := append(append([]interface{}{}, args...), f.Limit, offset)

	if err := s.db.SelectContext(ctx, &listings, pageQuery, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to search listings: %w", err)
	}
	return listings, total, nil
}

func (s *Store) CreateListing(ctx context.Context, l *models.Listing) error {
	query := `
		INSERT INTO listings
			(title, description, price, condition, brand, size, color, images, seller_id, category_id, is_active)
		VALUES
			(:title, :description, :price, :condition, :brand, :size, :color, :images, :seller_id, :category_id, :is_active)
		RETURNING id, is_sold, created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, l)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("failed to create listing: no row returned")
	}
	return rows.Scan(&l.ID, &l.IsSold, &l.CreatedAt, &l.UpdatedAt)
}

// GetListing returns any listing by id regardless of its availability.
func (s *Store) GetListing(ctx context.Context, id int64) (*models.ListingView, error) {
	var view models.ListingView
	err := s.db.GetContext(ctx, &view, listingViewSelect+" WHERE l.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %d: %w", id, err)
	}
	return &view, nil
}

// ListListingsBySeller returns every listing of a seller, newest first.
func (s *Store) ListListingsBySeller(ctx context.Context, sellerID int64) ([]models.ListingView, error) {
	listings := []models.ListingView{}
	err := s.db.SelectContext(ctx, &listings,
		listingViewSelect+" WHERE l.seller_id = $1 ORDER BY l.created_at DESC, l.id DESC", sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings of seller %d: %w", sellerID, err)
	}
	return listings, nil
}

// UpdateListing writes the editable columns. is_sold is owned by checkout
// and order cancellation and is never written here.
func (s *Store) UpdateListing(ctx context.Context, l *models.Listing) error {
	query := `
		UPDATE listings
		SET title = :title, description = :description, price = :price, condition = :condition,
			brand = :brand, size = :size, color = :color, images = :images,
			category_id = :category_id, is_active = :is_active, updated_at = NOW()
		WHERE id = :id`

	res, err := s.db.NamedExecContext(ctx, query, l)
	if err != nil {
		return fmt.Errorf("failed to update listing %d: %w", l.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteListing hard-deletes a listing that no order references. A listing
// with order history is deactivated instead so past orders keep their
// reference; it is also dropped from every cart. The returned flag reports
// whether the row was kept.
func (s *Store) DeleteListing(ctx context.Context, id int64) (bool, error) {
	var kept bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var referenced bool
		if err := tx.GetContext(ctx, &referenced,
			"SELECT EXISTS(SELECT 1 FROM order_items WHERE listing_id = $1)", id); err != nil {
			return fmt.Errorf("failed to check listing references: %w", err)
		}

		if !referenced {
			res, err := tx.ExecContext(ctx, "DELETE FROM listings WHERE id = $1", id)
			if isForeignKeyViolation(err) {
				return ErrConflict
			}
			if err != nil {
				return fmt.Errorf("failed to delete listing %d: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrNotFound
			}
			return nil
		}

		kept = true
		if _, err := tx.ExecContext(ctx,
			"UPDATE listings SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id); err != nil {
			return fmt.Errorf("failed to deactivate listing %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE listing_id = $1", id); err != nil {
			return fmt.Errorf("failed to drop listing %d from carts: %w", id, err)
		}
		return nil
	})
	return kept, err
}

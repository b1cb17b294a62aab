package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecofinds/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PlaceOrders persists a whole checkout atomically: every order with its
// items, the sold flag of every purchased listing and the removal of the
// consumed cart rows. A listing that is no longer available (sold or
// deactivated since it was read) aborts everything with ErrConflict.
func (s *Store) PlaceOrders(ctx context.Context, buyerID int64, orders []*models.Order, cartItemIDs []int64) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, order := range orders {
			if err := insertOrder(ctx, tx, order); err != nil {
				return err
			}

			for i := range order.Items {
				item := &order.Items[i]
				res, err := tx.ExecContext(ctx, `
					UPDATE listings SET is_sold = TRUE, updated_at = NOW()
					WHERE id = $1 AND is_sold = FALSE AND is_active = TRUE`,
					item.ListingID)
				if err != nil {
					return fmt.Errorf("failed to mark listing %d sold: %w", item.ListingID, err)
				}
				if n, _ := res.RowsAffected(); n == 0 {
					return fmt.Errorf("listing %d: %w", item.ListingID, ErrConflict)
				}
			}
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)",
			buyerID, pq.Array(cartItemIDs)); err != nil {
			return fmt.Errorf("failed to clear cart items: %w", err)
		}
		return nil
	})
}

func insertOrder(ctx context.Context, tx *sqlx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders
			(order_number, buyer_id, seller_id, total_amount, shipping_address, payment_method, status, checkout_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query,
		order.OrderNumber, order.BuyerID, order.SellerID, order.TotalAmount,
		order.ShippingAddress, order.PaymentMethod, order.Status, order.CheckoutKey,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("order %s for checkout %s: %w", order.OrderNumber, order.CheckoutKey, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, listing_id, title, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			item.OrderID, item.ListingID, item.Title, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

// GetOrder returns an order with its items.
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	orders := []models.Order{order}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrdersByCheckoutKey returns the orders a previous checkout of the same
// buyer created under key.
func (s *Store) ListOrdersByCheckoutKey(ctx context.Context, buyerID int64, key string) ([]models.Order, error) {
	return s.listOrders(ctx,
		"SELECT * FROM orders WHERE buyer_id = $1 AND checkout_key = $2 ORDER BY id", buyerID, key)
}

func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]models.Order, error) {
	return s.listOrders(ctx,
		"SELECT * FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC", buyerID)
}

func (s *Store) ListOrdersBySeller(ctx context.Context, sellerID int64) ([]models.Order, error) {
	return s.listOrders(ctx,
		"SELECT * FROM orders WHERE seller_id = $1 ORDER BY created_at DESC, id DESC", sellerID)
}

func (s *Store) listOrders(ctx context.Context, query string, args ...interface{}) ([]models.Order, error) {
	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all orders with a single query.
func (s *Store) attachItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Items = []models.OrderItem{}
		byID[orders[i].ID] = &orders[i]
	}

	query, args, err := sqlx.In("SELECT * FROM order_items WHERE order_id IN (?) ORDER BY id", ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var items []models.OrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	for _, item := range items {
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return nil
}

// TransitionOrder moves an order from one status to another. The update is
// conditional on the current status so concurrent transitions cannot both
// win. With relist set, the order's listings become purchasable again.
func (s *Store) TransitionOrder(ctx context.Context, orderID int64, from, to string, relist bool) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
			to, orderID, from)
		if err != nil {
			return fmt.Errorf("failed to update order %d status: %w", orderID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}

		if relist {
			if _, err := tx.ExecContext(ctx, `
				UPDATE listings SET is_sold = FALSE, updated_at = NOW()
				WHERE id IN (SELECT listing_id FROM order_items WHERE order_id = $1)`,
				orderID); err != nil {
				return fmt.Errorf("failed to relist listings of order %d: %w", orderID, err)
			}
		}
		return nil
	})
}

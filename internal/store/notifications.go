package store

import (
	"context"
	"fmt"

	"ecofinds/internal/models"

	"github.com/jmoiron/sqlx"
)

// SaveEventNotifications records eventID as processed and inserts the
// notifications it produced, in one transaction. It returns false without
// writing anything when the event was already processed.
func (s *Store) SaveEventNotifications(ctx context.Context, eventID, eventType string, notifications []models.Notification) (bool, error) {
	created := false
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
			eventID, eventType)
		if err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		for i := range notifications {
			n := &notifications[i]
			if err := tx.QueryRowxContext(ctx, `
				INSERT INTO notifications (user_id, kind, message, order_id)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at`,
				n.UserID, n.Kind, n.Message, n.OrderID,
			).Scan(&n.ID, &n.CreatedAt); err != nil {
				return fmt.Errorf("failed to create notification: %w", err)
			}
		}
		created = true
		return nil
	})
	return created, err
}

func (s *Store) ListNotifications(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := s.db.SelectContext(ctx, &notifications,
		"SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications of user %d: %w", userID, err)
	}
	return notifications, nil
}

// MarkNotificationRead only touches notifications owned by userID.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecofinds/internal/models"
)

// CreateUser inserts a user and fills its generated columns.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, name, bio, location, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Bio, user.Location, user.AvatarURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

// GetUserByEmail matches case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE LOWER(email) = LOWER($1)", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// UpdateProfile overwrites the editable profile columns.
func (s *Store) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, bio = $2, location = $3, avatar_url = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := s.db.GetContext(ctx, &user.UpdatedAt, query,
		user.Name, user.Bio, user.Location, user.AvatarURL, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update profile %d: %w", user.ID, err)
	}
	return nil
}

// GetProfile returns the user with listing and purchase counters.
func (s *Store) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	query := `
		SELECT u.*,
			(SELECT COUNT(*) FROM listings l WHERE l.seller_id = u.id AND l.is_active AND NOT l.is_sold) AS active_listings,
			(SELECT COUNT(*) FROM listings l WHERE l.seller_id = u.id AND l.is_sold) AS sold_listings,
			(SELECT COUNT(*) FROM orders o WHERE o.buyer_id = u.id) AS purchases
		FROM users u
		WHERE u.id = $1`

	var profile models.Profile
	err := s.db.GetContext(ctx, &profile, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %d: %w", id, err)
	}
	return &profile, nil
}

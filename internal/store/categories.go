package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ecofinds/internal/models"
)

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE slug = $1", slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %q: %w", slug, err)
	}
	return &category, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return &category, nil
}

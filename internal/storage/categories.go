package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harishnv/smartspend/internal/common"
	"github.com/harishnv/smartspend/internal/model"
)

// GetCategories returns all active categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, type, is_active, created_at
		FROM categories WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		categories = append(categories, *cat)
	}

	return categories, rows.Err()
}

// GetCategoryByName returns a category or common.ErrNotFound.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, type, is_active, created_at
		FROM categories WHERE name = ?`, name)

	cat, err := scanCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: category %s", common.ErrNotFound, name)
		}
		return nil, err
	}
	return cat, nil
}

// CreateCategory inserts a new category.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string, categoryType model.CategoryType) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description, type) VALUES (?, ?, ?)`,
		name, description, string(categoryType))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category id: %w", err)
	}

	return &model.Category{
		ID:          int(id),
		Name:        name,
		Description: description,
		Type:        categoryType,
		IsActive:    true,
	}, nil
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		cat         model.Category
		description sql.NullString
		catType     string
	)
	if err := row.Scan(&cat.ID, &cat.Name, &description, &catType, &cat.IsActive, &cat.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	cat.Description = description.String
	cat.Type = model.ParseCategoryType(catType)
	return &cat, nil
}

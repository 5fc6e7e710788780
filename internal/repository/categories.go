package repository

import (
	"context"
	"fmt"

	"github.com/pushkind/crawler-service/internal/domain"
)

// ListCategories returns the hub's category directory.
func (r *Repository) ListCategories(ctx context.Context, hubID int) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, hub_id, name, embedding
		FROM categories
		WHERE hub_id = $1
		ORDER BY id
	`, hubID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.HubID, &c.Name, &c.Embedding); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return categories, nil
}

// SetCategoryEmbedding stores the embedding blob for a category.
func (r *Repository) SetCategoryEmbedding(ctx context.Context, categoryID int, embedding []byte) error {
	_, err := r.pool.Exec(ctx, `UPDATE categories SET embedding = $2 WHERE id = $1`, categoryID, embedding)
	if err != nil {
		return fmt.Errorf("failed to set category embedding: %w", err)
	}
	return nil
}

// SetProductCategoryAutomatic assigns or clears (nil categoryID) the
// product's category. Products with a manual assignment are never touched;
// the WHERE clause makes the statement a no-op for them.
func (r *Repository) SetProductCategoryAutomatic(ctx context.Context, productID int, categoryID *int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE products
		SET category_id = $2,
		    category_assignment_source = 'automatic',
		    updated_at = NOW()
		WHERE id = $1 AND category_assignment_source <> 'manual'
	`, productID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to set product category: %w", err)
	}
	return nil
}

// ClearProductCategoriesByCrawler drops the automatic category assignment
// of every product owned by the crawler. Manual assignments stay. Returns
// the number of cleared rows.
func (r *Repository) ClearProductCategoriesByCrawler(ctx context.Context, crawlerID int) (int, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE products
		SET category_id = NULL,
		    updated_at = NOW()
		WHERE crawler_id = $1 AND category_assignment_source <> 'manual'
	`, crawlerID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear product categories: %w", err)
	}
	return int(result.RowsAffected()), nil
}

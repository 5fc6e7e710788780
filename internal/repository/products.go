package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pushkind/crawler-service/internal/domain"
)

// ListProducts returns every product owned by the crawler, images included.
func (r *Repository) ListProducts(ctx context.Context, crawlerID int) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, crawler_id, sku, name, price,
		       COALESCE(category, ''), COALESCE(units, ''), COALESCE(amount, 0),
		       COALESCE(description, ''), url, embedding, category_id,
		       category_assignment_source, updated_at
		FROM products
		WHERE crawler_id = $1
		ORDER BY id
	`, crawlerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	var ids []int32
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CrawlerID, &p.SKU, &p.Name, &p.Price,
			&p.Category, &p.Units, &p.Amount, &p.Description, &p.URL,
			&p.Embedding, &p.CategoryID, &p.CategoryAssignmentSource,
			&p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
		ids = append(ids, int32(p.ID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	images, err := r.productImages(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Images = images[products[i].ID]
	}

	return products, nil
}

// productImages loads image URLs for the given products, keyed by product id.
func (r *Repository) productImages(ctx context.Context, productIDs []int32) (map[int][]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, url
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY id
	`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	images := make(map[int][]string)
	for rows.Next() {
		var productID int
		var url string
		if err := rows.Scan(&productID, &url); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images[productID] = append(images[productID], url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product images: %w", err)
	}
	return images, nil
}

// CreateProducts inserts the given products and their images in a single
// transaction. Returns the number of created rows.
func (r *Repository) CreateProducts(ctx context.Context, products []domain.NewProduct) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	created := 0
	for _, p := range products {
		var id int
		err := tx.QueryRow(ctx, `
			INSERT INTO products (crawler_id, sku, name, price, category, units, amount, description, url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, p.CrawlerID, p.SKU, p.Name, p.Price, p.Category, p.Units, p.Amount, p.Description, p.URL).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to insert product %s: %w", p.URL, err)
		}
		if err := replaceProductImages(ctx, tx, id, p.Images); err != nil {
			return 0, err
		}
		created++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// UpdateProducts upserts products by (crawler_id, url), refreshing every
// scraped column, touching updated_at and replacing images wholesale. All
// rows go through one transaction. Returns the number of upserted rows.
func (r *Repository) UpdateProducts(ctx context.Context, products []domain.NewProduct) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updated := 0
	for _, p := range products {
		var id int
		err := tx.QueryRow(ctx, `
			INSERT INTO products (crawler_id, sku, name, price, category, units, amount, description, url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (crawler_id, url) DO UPDATE SET
				sku = EXCLUDED.sku,
				name = EXCLUDED.name,
				price = EXCLUDED.price,
				category = EXCLUDED.category,
				units = EXCLUDED.units,
				amount = EXCLUDED.amount,
				description = EXCLUDED.description,
				updated_at = NOW()
			RETURNING id
		`, p.CrawlerID, p.SKU, p.Name, p.Price, p.Category, p.Units, p.Amount, p.Description, p.URL).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert product %s: %w", p.URL, err)
		}
		if err := replaceProductImages(ctx, tx, id, p.Images); err != nil {
			return 0, err
		}
		updated++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return updated, nil
}

// replaceProductImages swaps the product's image set for the given URLs
// within the caller's transaction.
func replaceProductImages(ctx context.Context, tx pgx.Tx, productID int, urls []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete product images: %w", err)
	}
	if len(urls) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, url := range urls {
		batch.Queue(`INSERT INTO product_images (product_id, url) VALUES ($1, $2)`, productID, url)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range urls {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert product image: %w", err)
		}
	}
	return nil
}

// DeleteProducts removes every product owned by the crawler together with
// its association and image rows. Association rows go first so foreign keys
// hold throughout the transaction. Returns the number of deleted products.
func (r *Repository) DeleteProducts(ctx context.Context, crawlerID int) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM product_benchmark
		WHERE product_id IN (SELECT id FROM products WHERE crawler_id = $1)
	`, crawlerID); err != nil {
		return 0, fmt.Errorf("failed to delete benchmark associations: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM product_images
		WHERE product_id IN (SELECT id FROM products WHERE crawler_id = $1)
	`, crawlerID); err != nil {
		return 0, fmt.Errorf("failed to delete product images: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM products WHERE crawler_id = $1`, crawlerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// SetProductEmbedding stores the embedding blob for a product.
func (r *Repository) SetProductEmbedding(ctx context.Context, productID int, embedding []byte) error {
	_, err := r.pool.Exec(ctx, `UPDATE products SET embedding = $2 WHERE id = $1`, productID, embedding)
	if err != nil {
		return fmt.Errorf("failed to set product embedding: %w", err)
	}
	return nil
}

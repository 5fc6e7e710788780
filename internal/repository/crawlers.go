package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pushkind/crawler-service/internal/domain"
)

// GetCrawler looks a crawler up by its selector.
func (r *Repository) GetCrawler(ctx context.Context, selector string) (*domain.Crawler, error) {
	var c domain.Crawler
	err := r.pool.QueryRow(ctx, `
		SELECT id, hub_id, name, selector, processing, num_products, updated_at
		FROM crawlers
		WHERE selector = $1
	`, selector).Scan(&c.ID, &c.HubID, &c.Name, &c.Selector, &c.Processing,
		&c.NumProducts, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("crawler %q: %w", selector, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query crawler %q: %w", selector, err)
	}
	return &c, nil
}

// ListCrawlers returns every crawler belonging to the hub.
func (r *Repository) ListCrawlers(ctx context.Context, hubID int) ([]domain.Crawler, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, hub_id, name, selector, processing, num_products, updated_at
		FROM crawlers
		WHERE hub_id = $1
		ORDER BY id
	`, hubID)
	if err != nil {
		return nil, fmt.Errorf("failed to query crawlers: %w", err)
	}
	defer rows.Close()

	var crawlers []domain.Crawler
	for rows.Next() {
		var c domain.Crawler
		if err := rows.Scan(&c.ID, &c.HubID, &c.Name, &c.Selector, &c.Processing,
			&c.NumProducts, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan crawler: %w", err)
		}
		crawlers = append(crawlers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read crawlers: %w", err)
	}
	return crawlers, nil
}

// SetCrawlerProcessing flips the crawler's processing flag.
func (r *Repository) SetCrawlerProcessing(ctx context.Context, crawlerID int, processing bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE crawlers SET processing = $2 WHERE id = $1`, crawlerID, processing)
	if err != nil {
		return fmt.Errorf("failed to set crawler processing: %w", err)
	}
	return nil
}

// UpdateCrawlerStats recounts the crawler's products, touches updated_at
// and clears the processing flag.
func (r *Repository) UpdateCrawlerStats(ctx context.Context, crawlerID int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE crawlers
		SET num_products = (SELECT COUNT(*) FROM products WHERE crawler_id = $1),
		    processing = FALSE,
		    updated_at = NOW()
		WHERE id = $1
	`, crawlerID)
	if err != nil {
		return fmt.Errorf("failed to update crawler stats: %w", err)
	}
	return nil
}

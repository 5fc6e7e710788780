package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pushkind/crawler-service/internal/domain"
)

// GetBenchmark loads a benchmark by id.
func (r *Repository) GetBenchmark(ctx context.Context, benchmarkID int) (*domain.Benchmark, error) {
	var b domain.Benchmark
	err := r.pool.QueryRow(ctx, `
		SELECT id, hub_id, name, sku, category, units, price, amount,
		       description, embedding, processing, num_products, updated_at
		FROM benchmarks
		WHERE id = $1
	`, benchmarkID).Scan(&b.ID, &b.HubID, &b.Name, &b.SKU, &b.Category,
		&b.Units, &b.Price, &b.Amount, &b.Description, &b.Embedding,
		&b.Processing, &b.NumProducts, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("benchmark %d: %w", benchmarkID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query benchmark %d: %w", benchmarkID, err)
	}
	return &b, nil
}

// SetBenchmarkEmbedding stores the embedding blob for a benchmark.
func (r *Repository) SetBenchmarkEmbedding(ctx context.Context, benchmarkID int, embedding []byte) error {
	_, err := r.pool.Exec(ctx, `UPDATE benchmarks SET embedding = $2 WHERE id = $1`, benchmarkID, embedding)
	if err != nil {
		return fmt.Errorf("failed to set benchmark embedding: %w", err)
	}
	return nil
}

// RemoveBenchmarkAssociations deletes every product association of the
// benchmark. Returns the number of removed rows.
func (r *Repository) RemoveBenchmarkAssociations(ctx context.Context, benchmarkID int) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM product_benchmark WHERE benchmark_id = $1`, benchmarkID)
	if err != nil {
		return 0, fmt.Errorf("failed to remove benchmark associations: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// SetBenchmarkAssociation records one matched product with its cosine
// distance. Re-running over an existing pair refreshes the distance.
func (r *Repository) SetBenchmarkAssociation(ctx context.Context, benchmarkID, productID int, distance float32) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO product_benchmark (benchmark_id, product_id, distance)
		VALUES ($1, $2, $3)
		ON CONFLICT (benchmark_id, product_id) DO UPDATE SET distance = EXCLUDED.distance
	`, benchmarkID, productID, distance)
	if err != nil {
		return fmt.Errorf("failed to set benchmark association: %w", err)
	}
	return nil
}

// SetBenchmarkProcessing flips the benchmark's processing flag.
func (r *Repository) SetBenchmarkProcessing(ctx context.Context, benchmarkID int, processing bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE benchmarks SET processing = $2 WHERE id = $1`, benchmarkID, processing)
	if err != nil {
		return fmt.Errorf("failed to set benchmark processing: %w", err)
	}
	return nil
}

// UpdateBenchmarkStats recounts the benchmark's associations, touches
// updated_at and clears the processing flag.
func (r *Repository) UpdateBenchmarkStats(ctx context.Context, benchmarkID int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE benchmarks
		SET num_products = (SELECT COUNT(*) FROM product_benchmark WHERE benchmark_id = $1),
		    processing = FALSE,
		    updated_at = NOW()
		WHERE id = $1
	`, benchmarkID)
	if err != nil {
		return fmt.Errorf("failed to update benchmark stats: %w", err)
	}
	return nil
}

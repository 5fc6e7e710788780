package repository

import (
	"context"
	"fmt"
)

// lockClassHub namespaces hub advisory locks away from any other user of
// pg_advisory_xact_lock on the same database.
const lockClassHub = 57201

// HasAnyProcessingInHub reports whether any crawler or benchmark of the hub
// is flagged as processing.
func (r *Repository) HasAnyProcessingInHub(ctx context.Context, hubID int) (bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM crawlers WHERE hub_id = $1 AND processing)
		    OR EXISTS (SELECT 1 FROM benchmarks WHERE hub_id = $1 AND processing)
	`, hubID).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to query processing flags: %w", err)
	}
	return active, nil
}

// ClaimHubProcessing atomically claims the hub-wide processing lock: when no
// crawler or benchmark of the hub is processing, all of them get flagged and
// the claim succeeds. Otherwise nothing is written and false is returned.
// A transaction-scoped advisory lock serialises concurrent claims for the
// same hub, so exactly one of two racing claims wins.
func (r *Repository) ClaimHubProcessing(ctx context.Context, hubID int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, lockClassHub, hubID); err != nil {
		return false, fmt.Errorf("failed to take hub advisory lock: %w", err)
	}

	var active bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM crawlers WHERE hub_id = $1 AND processing)
		    OR EXISTS (SELECT 1 FROM benchmarks WHERE hub_id = $1 AND processing)
	`, hubID).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("failed to query processing flags: %w", err)
	}
	if active {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE crawlers SET processing = TRUE WHERE hub_id = $1`, hubID); err != nil {
		return false, fmt.Errorf("failed to flag crawlers: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE benchmarks SET processing = TRUE WHERE hub_id = $1`, hubID); err != nil {
		return false, fmt.Errorf("failed to flag benchmarks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit claim: %w", err)
	}
	return true, nil
}

// ReleaseHubProcessing clears the processing flags of every crawler and
// benchmark of the hub. It takes the same advisory lock as
// ClaimHubProcessing, so a release never interleaves with a claim for the
// same hub.
func (r *Repository) ReleaseHubProcessing(ctx context.Context, hubID int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, lockClassHub, hubID); err != nil {
		return fmt.Errorf("failed to take hub advisory lock: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE crawlers SET processing = FALSE WHERE hub_id = $1`, hubID); err != nil {
		return fmt.Errorf("failed to unflag crawlers: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE benchmarks SET processing = FALSE WHERE hub_id = $1`, hubID); err != nil {
		return fmt.Errorf("failed to unflag benchmarks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit release: %w", err)
	}
	return nil
}

// ListProcessingHubs returns the hubs that currently have at least one
// crawler or benchmark flagged as processing.
func (r *Repository) ListProcessingHubs(ctx context.Context) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT hub_id FROM crawlers WHERE processing
		UNION
		SELECT hub_id FROM benchmarks WHERE processing
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing hubs: %w", err)
	}
	defer rows.Close()

	var hubs []int
	for rows.Next() {
		var hubID int
		if err := rows.Scan(&hubID); err != nil {
			return nil, fmt.Errorf("failed to scan hub id: %w", err)
		}
		hubs = append(hubs, hubID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read processing hubs: %w", err)
	}
	return hubs, nil
}

// ReleaseStaleProcessing clears every processing flag in the database.
// Called once at startup so flags left behind by a crashed run cannot block
// jobs forever. Returns the number of cleared rows.
func (r *Repository) ReleaseStaleProcessing(ctx context.Context) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	crawlers, err := tx.Exec(ctx, `UPDATE crawlers SET processing = FALSE WHERE processing`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset crawler flags: %w", err)
	}
	benchmarks, err := tx.Exec(ctx, `UPDATE benchmarks SET processing = FALSE WHERE processing`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset benchmark flags: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit reset: %w", err)
	}
	return int(crawlers.RowsAffected() + benchmarks.RowsAffected()), nil
}

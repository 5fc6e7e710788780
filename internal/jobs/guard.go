package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// releaseTimeout bounds the lock release and final stats writes so they
// still run when the job's context is already cancelled.
const releaseTimeout = 10 * time.Second

// HubGuard claims and releases the hub-wide processing lock.
type HubGuard interface {
	ClaimHubProcessing(ctx context.Context, hubID int) (bool, error)
	ReleaseHubProcessing(ctx context.Context, hubID int) error
}

// RunWithHubGuard runs job under the hub processing lock. When the lock is
// already held it warns and reports skipped=true without running the job.
// A claimed lock is released on every exit path, including job failure.
func RunWithHubGuard(ctx context.Context, guard HubGuard, hubID int, logger zerolog.Logger, job func(context.Context) error) (skipped bool, err error) {
	claimed, err := guard.ClaimHubProcessing(ctx, hubID)
	if err != nil {
		return false, fmt.Errorf("failed to claim processing lock for hub %d: %w", hubID, err)
	}
	if !claimed {
		logger.Warn().
			Int("hub_id", hubID).
			Msg("Skipping job: processing already active")
		return true, nil
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if releaseErr := guard.ReleaseHubProcessing(releaseCtx, hubID); releaseErr != nil {
			logger.Error().Err(releaseErr).Int("hub_id", hubID).
				Msg("Failed to release hub processing lock")
		}
	}()

	return false, job(ctx)
}

// hubRegistry tracks hubs with a job currently running in this process.
// A hub is marked before its database flags are claimed and unmarked only
// after they are released, so every flag this process sets stays covered
// by a registry entry for its whole lifetime.
type hubRegistry struct {
	mu     sync.Mutex
	counts map[int]int
}

func newHubRegistry() *hubRegistry {
	return &hubRegistry{counts: make(map[int]int)}
}

func (r *hubRegistry) add(hubID int) {
	r.mu.Lock()
	r.counts[hubID]++
	r.mu.Unlock()
}

func (r *hubRegistry) remove(hubID int) {
	r.mu.Lock()
	if r.counts[hubID] > 1 {
		r.counts[hubID]--
	} else {
		delete(r.counts, hubID)
	}
	r.mu.Unlock()
}

func (r *hubRegistry) active(hubID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[hubID] > 0
}

// runWithHubGuard wraps RunWithHubGuard and keeps the in-process registry
// in step with the database flags.
func (p *Processor) runWithHubGuard(ctx context.Context, hubID int, logger zerolog.Logger, job func(context.Context) error) (bool, error) {
	p.active.add(hubID)
	defer p.active.remove(hubID)
	return RunWithHubGuard(ctx, p.store, hubID, logger, job)
}

// IsHubActive reports whether a job for the hub is currently running in
// this process. The stale-flag sweeper uses it to tell a held lock from
// an orphaned one.
func (p *Processor) IsHubActive(hubID int) bool {
	return p.active.active(hubID)
}

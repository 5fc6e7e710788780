// Package sweepers contains periodic background maintenance loops.
package sweepers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// FlagStore is the repository surface the sweeper needs.
type FlagStore interface {
	ListProcessingHubs(ctx context.Context) ([]int, error)
	ReleaseHubProcessing(ctx context.Context, hubID int) error
}

// ActiveJobs reports which hubs currently run a job in this process.
type ActiveJobs interface {
	IsHubActive(hubID int) bool
}

// StaleFlagSweeper periodically releases hub processing flags that no
// running job owns. The worker is the only writer of processing flags in
// its database, so a set flag with no in-process job is an orphan left by
// a failed release.
type StaleFlagSweeper struct {
	store    FlagStore
	active   ActiveJobs
	logger   *zerolog.Logger
	interval time.Duration
	stopChan chan struct{}
}

// NewStaleFlagSweeper creates a sweeper for orphaned processing flags
func NewStaleFlagSweeper(store FlagStore, active ActiveJobs, logger *zerolog.Logger, interval time.Duration) *StaleFlagSweeper {
	return &StaleFlagSweeper{
		store:    store,
		active:   active,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic recovery sweep
func (s *StaleFlagSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting stale flag sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Stale flag sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Stale flag sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if err := s.ReleaseStaleFlags(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to release stale processing flags")
			}
		}
	}
}

// Stop signals the sweeper to stop
func (s *StaleFlagSweeper) Stop() {
	close(s.stopChan)
}

// ReleaseStaleFlags clears processing flags for every hub that has no job
// running in this process. Releasing a hub whose stale flags block claims
// cannot clobber a live job: a claim racing the release either sees the
// stale flags and skips, or runs after the release and claims cleanly.
func (s *StaleFlagSweeper) ReleaseStaleFlags(ctx context.Context) error {
	s.logger.Debug().Msg("Running stale flag sweep")

	hubs, err := s.store.ListProcessingHubs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list processing hubs: %w", err)
	}

	released := 0
	for _, hubID := range hubs {
		if s.active.IsHubActive(hubID) {
			continue
		}
		if err := s.store.ReleaseHubProcessing(ctx, hubID); err != nil {
			s.logger.Error().Err(err).Int("hub_id", hubID).Msg("Failed to release hub flags")
			continue
		}
		s.logger.Warn().Int("hub_id", hubID).Msg("Released processing flags with no running job")
		released++
	}

	if released > 0 {
		s.logger.Info().
			Int("released", released).
			Msg("Recovered orphaned processing flags")
	}

	return nil
}

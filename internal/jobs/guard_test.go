package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithHubGuardRunsJobAndReleases(t *testing.T) {
	store := newFakeStore()

	skipped, err := RunWithHubGuard(context.Background(), store, 5, zerolog.Nop(), func(ctx context.Context) error {
		store.event("job")
		return nil
	})

	require.NoError(t, err)
	assert.False(t, skipped)
	assert.Equal(t, []string{"claim", "job", "release"}, store.eventLog())
	assert.False(t, store.lockHeld[5])
}

func TestRunWithHubGuardSkipsWhenActive(t *testing.T) {
	store := newFakeStore()
	store.lockHeld[5] = true

	skipped, err := RunWithHubGuard(context.Background(), store, 5, zerolog.Nop(), func(ctx context.Context) error {
		store.event("job")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Equal(t, []string{"claim->busy"}, store.eventLog())
	assert.True(t, store.lockHeld[5], "a skipped run must not release someone else's lock")
}

func TestRunWithHubGuardReleasesAfterFailure(t *testing.T) {
	store := newFakeStore()
	jobErr := errors.New("job blew up")

	skipped, err := RunWithHubGuard(context.Background(), store, 5, zerolog.Nop(), func(ctx context.Context) error {
		store.event("job")
		return jobErr
	})

	assert.False(t, skipped)
	assert.ErrorIs(t, err, jobErr)
	assert.Equal(t, []string{"claim", "job", "release"}, store.eventLog())
	assert.False(t, store.lockHeld[5])
}

func TestRunWithHubGuardClaimError(t *testing.T) {
	store := newFakeStore()
	store.claimErr = errors.New("connection refused")

	skipped, err := RunWithHubGuard(context.Background(), store, 5, zerolog.Nop(), func(ctx context.Context) error {
		store.event("job")
		return nil
	})

	assert.False(t, skipped)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.claimErr)
	assert.Contains(t, err.Error(), "hub 5")
	assert.Empty(t, store.eventLog(), "neither the job nor a release may run when the claim fails")
}

func TestRunWithHubGuardReleaseErrorKeepsOutcome(t *testing.T) {
	store := newFakeStore()
	store.releaseErr = errors.New("connection reset")

	skipped, err := RunWithHubGuard(context.Background(), store, 5, zerolog.Nop(), func(ctx context.Context) error {
		return nil
	})

	assert.NoError(t, err, "a failed release is logged, not surfaced")
	assert.False(t, skipped)
	assert.Equal(t, []string{"claim", "release"}, store.eventLog())
}

func TestRunWithHubGuardReleasesAfterCancellation(t *testing.T) {
	store := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())

	skipped, err := RunWithHubGuard(ctx, store, 5, zerolog.Nop(), func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	assert.False(t, skipped)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"claim", "release"}, store.eventLog())
	assert.False(t, store.lockHeld[5])
}

func TestRunWithHubGuardTracksActiveHub(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store, nil, nil)

	require.False(t, p.IsHubActive(5))

	skipped, err := p.runWithHubGuard(context.Background(), 5, zerolog.Nop(), func(ctx context.Context) error {
		assert.True(t, p.IsHubActive(5), "hub must be marked active while its job runs")
		return nil
	})

	require.NoError(t, err)
	assert.False(t, skipped)
	assert.False(t, p.IsHubActive(5))
}

func TestRunWithHubGuardUnmarksSkippedHub(t *testing.T) {
	store := newFakeStore()
	store.lockHeld[5] = true
	p := newTestProcessor(store, nil, nil)

	skipped, err := p.runWithHubGuard(context.Background(), 5, zerolog.Nop(), func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.True(t, skipped)
	assert.False(t, p.IsHubActive(5))
}

func TestRunWithHubGuardUnmarksHubAfterFailure(t *testing.T) {
	store := newFakeStore()
	p := newTestProcessor(store, nil, nil)

	_, err := p.runWithHubGuard(context.Background(), 5, zerolog.Nop(), func(ctx context.Context) error {
		return errors.New("job blew up")
	})

	require.Error(t, err)
	assert.False(t, p.IsHubActive(5))
}

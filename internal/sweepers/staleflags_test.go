package sweepers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlagStore struct {
	mu         sync.Mutex
	hubs       []int
	listErr    error
	released   []int
	releaseErr map[int]error
}

func (s *fakeFlagStore) ListProcessingHubs(ctx context.Context) ([]int, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.hubs...), nil
}

func (s *fakeFlagStore) ReleaseHubProcessing(ctx context.Context, hubID int) error {
	if err := s.releaseErr[hubID]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, hubID)
	return nil
}

func (s *fakeFlagStore) releasedHubs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.released...)
}

type fakeActiveJobs map[int]bool

func (a fakeActiveJobs) IsHubActive(hubID int) bool { return a[hubID] }

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestReleaseStaleFlagsSkipsActiveHubs(t *testing.T) {
	store := &fakeFlagStore{hubs: []int{1, 2, 3}}
	active := fakeActiveJobs{2: true}

	s := NewStaleFlagSweeper(store, active, nopLogger(), time.Minute)
	require.NoError(t, s.ReleaseStaleFlags(context.Background()))

	assert.Equal(t, []int{1, 3}, store.releasedHubs())
}

func TestReleaseStaleFlagsListError(t *testing.T) {
	store := &fakeFlagStore{listErr: errors.New("connection refused")}

	s := NewStaleFlagSweeper(store, fakeActiveJobs{}, nopLogger(), time.Minute)

	assert.Error(t, s.ReleaseStaleFlags(context.Background()))
}

func TestReleaseStaleFlagsContinuesAfterReleaseError(t *testing.T) {
	store := &fakeFlagStore{
		hubs:       []int{1, 2},
		releaseErr: map[int]error{1: errors.New("deadlock detected")},
	}

	s := NewStaleFlagSweeper(store, fakeActiveJobs{}, nopLogger(), time.Minute)
	require.NoError(t, s.ReleaseStaleFlags(context.Background()))

	assert.Equal(t, []int{2}, store.releasedHubs())
}

func TestSweeperStartStop(t *testing.T) {
	store := &fakeFlagStore{hubs: []int{4}}

	s := NewStaleFlagSweeper(store, fakeActiveJobs{}, nopLogger(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(store.releasedHubs()) > 0
	}, 2*time.Second, 5*time.Millisecond, "sweeper never swept")

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

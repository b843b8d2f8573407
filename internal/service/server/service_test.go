package server

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
	"github.com/oshokin/lsep/internal/repository/audit"
)

var errTestAppend = errors.New("test append error")

// memoryRepository is a minimal in-memory audit repository for tests.
type memoryRepository struct {
	mu sync.Mutex
	// entries holds appended transitions per session.
	entries map[string][]safety.Transition
	// appendErr is returned from Append when set.
	appendErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{entries: make(map[string][]safety.Transition)}
}

func (m *memoryRepository) StartSession(context.Context) (string, error) {
	return "session", nil
}

func (m *memoryRepository) Append(_ context.Context, sessionID string, entries ...safety.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appendErr != nil {
		return m.appendErr
	}

	m.entries[sessionID] = append(m.entries[sessionID], entries...)

	return nil
}

func (m *memoryRepository) List(_ context.Context, sessionID string) ([]safety.Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return safety.CloneTransitions(m.entries[sessionID]), nil
}

func (m *memoryRepository) Sessions(context.Context) ([]audit.Session, error) {
	return nil, nil
}

func startService(t *testing.T, repo *memoryRepository) *service {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	var s *service
	if repo == nil {
		s = newService(ctx, engine.New(), nil, "")
	} else {
		s = newService(ctx, engine.New(), repo, "session")
	}

	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})

	return s
}

func at(ts, distance, velocity, confidence float64) safety.SensorReading {
	return safety.NewSensorReading(distance, velocity, confidence, safety.WithTimestamp(ts))
}

// TestService_PersistsTransitions checks every recorded transition reaches the repository.
func TestService_PersistsTransitions(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	s := startService(t, repo)
	ctx := context.Background()

	for _, r := range []safety.SensorReading{
		at(0, 20, 0, 0.95),
		at(3, 6, 2, 0.95),
		at(3.5, 6, 2, 0.95),
		at(5, 4, 2, 0.95),
	} {
		_, err := s.Evaluate(ctx, r)
		require.NoError(t, err)
	}

	history, err := s.History(ctx)
	require.NoError(t, err)

	persisted, err := repo.List(ctx, "session")
	require.NoError(t, err)

	if diff := cmp.Diff(history, persisted); diff != "" {
		t.Fatalf("persisted trail differs (-engine +repo):\n%s", diff)
	}

	require.Len(t, persisted, 2)

	snapshot, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, safety.Snapshot{State: safety.StateCare, LastTransitionTime: 5}, snapshot)
}

// TestService_RejectsOutOfOrder keeps the engine untouched for stale readings.
func TestService_RejectsOutOfOrder(t *testing.T) {
	t.Parallel()

	s := startService(t, nil)
	ctx := context.Background()

	_, err := s.Evaluate(ctx, at(10, 6, 2, 0.95))
	require.NoError(t, err)

	_, err = s.Evaluate(ctx, at(9, 0.5, 2, 0.95))
	require.ErrorIs(t, err, safety.ErrOutOfOrder)

	// Equal timestamps are in order.
	_, err = s.Evaluate(ctx, at(10, 6, 2, 0.95))
	require.NoError(t, err)

	snapshot, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, safety.StateIntent, snapshot.State)
}

// TestService_RejectsInvalidReading validates before queueing.
func TestService_RejectsInvalidReading(t *testing.T) {
	t.Parallel()

	s := startService(t, nil)

	_, err := s.Evaluate(context.Background(), at(1, -3, 2, 0.95))
	require.ErrorIs(t, err, safety.ErrInvalidReading)

	history, err := s.History(context.Background())
	require.NoError(t, err)
	require.Empty(t, history)
}

// TestService_AppendFailureKeepsState logs persistence errors without failing the call.
func TestService_AppendFailureKeepsState(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	repo.appendErr = errTestAppend
	s := startService(t, repo)

	decision, err := s.Evaluate(context.Background(), at(1, 0.2, 1, 0.95))
	require.NoError(t, err)
	require.Equal(t, safety.StateThreat, decision.State)
	require.True(t, decision.Changed)
}

// TestService_ConcurrentProducers serializes many callers onto one engine.
func TestService_ConcurrentProducers(t *testing.T) {
	t.Parallel()

	s := startService(t, newMemoryRepository())
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Go(func() {
			// Identical timestamps never violate ordering.
			_, err := s.Evaluate(ctx, at(1, float64(i%10), 1, 0.95))
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	history, err := s.History(ctx)
	require.NoError(t, err)

	for i := 1; i < len(history); i++ {
		require.NotEqual(t, history[i-1].State, history[i].State)
	}
}

// TestService_Stopped returns errServiceStopped once the worker exits.
func TestService_Stopped(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := newService(ctx, engine.New(), nil, "")

	cancel()
	<-s.Done()

	_, err := s.Snapshot(context.Background())
	require.ErrorIs(t, err, errServiceStopped)
}

// TestService_CallerCanceled returns the caller's context error.
func TestService_CallerCanceled(t *testing.T) {
	t.Parallel()

	s := startService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The worker may still win the race, so either outcome is valid.
	_, err := s.History(ctx)
	if err != nil {
		require.ErrorIs(t, err, context.Canceled)
	}
}

// TestResolveListenAddress covers overrides and port extraction.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	addr, err := resolveListenAddress("robot.local:7070", "")
	require.NoError(t, err)
	require.Equal(t, ":7070", addr)

	addr, err = resolveListenAddress("robot.local:7070", "127.0.0.1:9000")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", addr)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("no-port", "")
	require.Error(t, err)
}

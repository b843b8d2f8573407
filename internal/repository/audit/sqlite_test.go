package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/lsep/internal/domain/safety"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, repo.Close())
	})

	return repo
}

func TestSQLiteRepository_AppendList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestRepo(t)

	session, err := repo.StartSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, session)

	trail := []safety.Transition{
		{Timestamp: 3, State: safety.StateIntent, TTCAtTransition: 3, Cause: safety.CauseThreshold},
		{Timestamp: 5, State: safety.StateCare, TTCAtTransition: 5, Cause: safety.CauseThreshold},
	}

	require.NoError(t, repo.Append(ctx, session, trail[0]))
	require.NoError(t, repo.Append(ctx, session, trail[1]))

	got, err := repo.List(ctx, session)
	require.NoError(t, err)

	if diff := cmp.Diff(trail, got); diff != "" {
		t.Fatalf("trail mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteRepository_SessionsAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestRepo(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++

		return base.Add(time.Duration(tick) * time.Second)
	}

	first, err := repo.StartSession(ctx)
	require.NoError(t, err)

	second, err := repo.StartSession(ctx)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, repo.Append(ctx, first,
		safety.Transition{Timestamp: 1, State: safety.StateThreat, TTCAtTransition: 1, Cause: safety.CauseThreatBypass},
	))

	got, err := repo.List(ctx, second)
	require.NoError(t, err)
	require.Empty(t, got)

	sessions, err := repo.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, first, sessions[0].ID)
	require.Equal(t, 1, sessions[0].Transitions)
	require.Equal(t, second, sessions[1].ID)
	require.Equal(t, 0, sessions[1].Transitions)
}

func TestSQLiteRepository_UnknownSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestRepo(t)

	err := repo.Append(ctx, "missing", safety.Transition{State: safety.StateCare})
	require.ErrorIs(t, err, ErrSessionNotFound)

	err = repo.Append(ctx, "", safety.Transition{State: safety.StateCare})
	require.ErrorIs(t, err, errSessionRequired)

	got, err := repo.List(ctx, "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Nil(t, got)

	_, err = repo.List(ctx, "")
	require.ErrorIs(t, err, errSessionRequired)
}

// TestSQLiteRepository_SessionsSubSecondOrder starts two sessions within one
// second, the first exactly on the second boundary.
func TestSQLiteRepository_SessionsSubSecondOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestRepo(t)

	starts := []time.Time{
		time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 10, 0, 0, 500_000_000, time.UTC),
	}
	next := 0
	repo.now = func() time.Time {
		ts := starts[next]
		next++

		return ts
	}

	first, err := repo.StartSession(ctx)
	require.NoError(t, err)

	second, err := repo.StartSession(ctx)
	require.NoError(t, err)

	sessions, err := repo.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, first, sessions[0].ID)
	require.True(t, starts[0].Equal(sessions[0].StartedAt))
	require.Equal(t, second, sessions[1].ID)
	require.True(t, starts[1].Equal(sessions[1].StartedAt))
}

func TestSQLiteRepository_AppendOnly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openTestRepo(t)

	session, err := repo.StartSession(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, session,
		safety.Transition{Timestamp: 1, State: safety.StateCare, TTCAtTransition: 1, Cause: safety.CauseThreshold},
	))

	_, err = repo.db.ExecContext(ctx, `UPDATE transitions SET state = 'IDLE'`)
	require.ErrorContains(t, err, "append-only")

	_, err = repo.db.ExecContext(ctx, `DELETE FROM transitions`)
	require.ErrorContains(t, err, "append-only")
}

func TestOpenSQLite_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")

	repo, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	session, err := repo.StartSession(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, session,
		safety.Transition{Timestamp: 2, State: safety.StateLowConf, TTCAtTransition: 2, Cause: safety.CauseConfidenceLow},
	))
	require.NoError(t, repo.Close())

	repo, err = OpenSQLite(ctx, path)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, repo.Close())
	}()

	got, err := repo.List(ctx, session)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, safety.StateLowConf, got[0].State)
}

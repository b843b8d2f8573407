package safety

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSeverity_LadderOrder verifies the ladder ranks IDLE..THREAT as 0..5.
func TestSeverity_LadderOrder(t *testing.T) {
	t.Parallel()

	want := map[State]int{
		StateIdle:      0,
		StateAwareness: 1,
		StateIntent:    2,
		StateCare:      3,
		StateCritical:  4,
		StateThreat:    5,
	}
	for s, rank := range want {
		require.Equal(t, rank, Severity(s), s)
		require.True(t, s.IsLadder(), s)
		require.False(t, s.IsExtended(), s)
	}
}

// TestSeverity_ExtendedRankZero ensures non-ladder tags map to the sentinel rank.
func TestSeverity_ExtendedRankZero(t *testing.T) {
	t.Parallel()

	for _, s := range []State{StateMedConf, StateLowConf, StateIntegrity, State("BOGUS")} {
		require.Zero(t, Severity(s), s)
		require.False(t, s.IsLadder(), s)
	}
}

// TestParseState checks all nine tags parse and unknown tags are rejected.
func TestParseState(t *testing.T) {
	t.Parallel()

	require.Len(t, States(), 9)

	for _, s := range States() {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}

	_, err := ParseState("SAFE")
	require.ErrorIs(t, err, ErrUnknownState)
}

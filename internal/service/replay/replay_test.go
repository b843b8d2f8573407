package replay

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
)

const approachYAML = `
readings:
  - {distance_m: 12.0, closing_velocity_ms: 0.0, confidence: 0.95, timestamp: 0}
  - {distance_m: 8.0, closing_velocity_ms: 1.2, confidence: 0.95, timestamp: 1}
  - {distance_m: 4.5, closing_velocity_ms: 1.2, confidence: 0.95, timestamp: 2}
  - {distance_m: 2.8, closing_velocity_ms: 1.2, confidence: 0.95, timestamp: 3}
  - {distance_m: 1.2, closing_velocity_ms: 1.5, confidence: 0.95, timestamp: 4}
  - {distance_m: 0.4, closing_velocity_ms: 2.0, confidence: 0.95, timestamp: 5}
`

// TestParse_YAMLAndJSON accepts both encodings.
func TestParse_YAMLAndJSON(t *testing.T) {
	t.Parallel()

	readings, err := Parse([]byte(approachYAML))
	require.NoError(t, err)
	require.Len(t, readings, 6)
	require.InDelta(t, 0.4, readings[5].DistanceM, 0)

	readings, err = Parse([]byte(`{"readings": [{"distance_m": 3, "closing_velocity_ms": 1, "confidence": 1, "timestamp": 0}]}`))
	require.NoError(t, err)
	require.Len(t, readings, 1)
	require.InDelta(t, 0.0, readings[0].Timestamp, 0)
}

// TestParse_Rejects covers the validation errors.
func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		err   error
	}{
		{
			name:  "empty",
			input: `readings: []`,
			err:   errNoReadings,
		},
		{
			name:  "missing timestamp",
			input: `readings: [{distance_m: 1, closing_velocity_ms: 1, confidence: 1}]`,
			err:   errMissingTimestamp,
		},
		{
			name:  "unordered",
			input: `readings: [{distance_m: 1, closing_velocity_ms: 1, confidence: 1, timestamp: 2}, ` +
				`{distance_m: 1, closing_velocity_ms: 1, confidence: 1, timestamp: 1}]`,
			err: errUnordered,
		},
		{
			name:  "invalid confidence",
			input: `readings: [{distance_m: 1, closing_velocity_ms: 1, confidence: 2, timestamp: 0}]`,
			err:   safety.ErrInvalidReading,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.input))
			require.ErrorIs(t, err, tc.err)
		})
	}
}

// TestLoad reads a recording from disk.
func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "approach.yaml")
	require.NoError(t, os.WriteFile(path, []byte(approachYAML), 0o600))

	readings, err := Load(path)
	require.NoError(t, err)
	require.Len(t, readings, 6)
}

// TestRunAndSummarize replays the approach scenario.
func TestRunAndSummarize(t *testing.T) {
	t.Parallel()

	readings, err := Parse([]byte(approachYAML))
	require.NoError(t, err)

	steps := Run(engine.New(), readings)
	require.Len(t, steps, 6)

	states := make([]safety.State, 0, len(steps))
	for _, s := range steps {
		states = append(states, s.Decision.State)
	}

	require.Equal(t, []safety.State{
		safety.StateIdle,
		safety.StateAwareness,
		safety.StateIntent,
		safety.StateCare,
		safety.StateCritical,
		safety.StateThreat,
	}, states)

	summary := Summarize(steps)
	require.Equal(t, 6, summary.Readings)
	require.Equal(t, 5, summary.Transitions)
	require.Zero(t, summary.Held)
	require.Zero(t, summary.Gated)
	require.InDelta(t, 0.2, summary.MinTTC, 1e-9)
	require.InDelta(t, (8.0/1.2+4.5/1.2+2.8/1.2+1.2/1.5+0.4/2.0)/5, summary.MeanTTC, 1e-9)
	require.InDelta(t, 1.0, summary.Dwell[safety.StateIdle], 1e-9)
	require.NotContains(t, summary.Dwell, safety.StateThreat)

	var buf bytes.Buffer

	require.NoError(t, WriteSteps(&buf, steps))
	require.Contains(t, buf.String(), "∞")
	require.Contains(t, buf.String(), "transition (threat_bypass)")

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, summary))
	require.Regexp(t, `transitions\s+5\n`, buf.String())
}

// TestSummarize_NoFiniteTTC leaves the TTC statistics undefined.
func TestSummarize_NoFiniteTTC(t *testing.T) {
	t.Parallel()

	steps := Run(engine.New(), []safety.SensorReading{
		safety.NewSensorReading(20, 0, 0.95, safety.WithTimestamp(0)),
		safety.NewSensorReading(5, 1, 0.2, safety.WithTimestamp(1)),
	})

	summary := Summarize(steps)
	require.True(t, math.IsNaN(summary.MinTTC))
	require.True(t, math.IsNaN(summary.MeanTTC))
	require.Equal(t, 1, summary.Gated)
	require.Equal(t, 1, summary.Transitions)
}

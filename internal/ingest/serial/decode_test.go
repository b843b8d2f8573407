package serial

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
)

var errTestSink = errors.New("test sink failure")

// recordingSink evaluates readings on a real engine and keeps them.
type recordingSink struct {
	// engine evaluates accepted readings.
	engine *engine.Engine
	// readings are the readings received, in order.
	readings []safety.SensorReading
	// err, when set, is returned for every reading.
	err error
}

func (s *recordingSink) Evaluate(_ context.Context, r safety.SensorReading) (engine.Decision, error) {
	if s.err != nil {
		return engine.Decision{}, s.err
	}

	if err := safety.Validate(r); err != nil {
		return engine.Decision{}, err
	}

	s.readings = append(s.readings, r)

	return s.engine.Evaluate(r), nil
}

// TestDecode_Stream feeds a mixed stream through Decode.
func TestDecode_Stream(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`# approach recorded on the bench`,
		`{"distance_m": 20, "closing_velocity_ms": 0, "confidence": 0.95, "timestamp": 0}`,
		``,
		`{"distance_m": 6, "closing_velocity_ms": 2, "confidence": 0.95, "timestamp": 3}`,
		`not json`,
		`{"distance_m": 3, "closing_velocity_ms": 2, "confidence": 0.95, "timestamp": 5, "operator": "x"}`,
		`{"distance_m": -1, "closing_velocity_ms": 2, "confidence": 0.95, "timestamp": 6}`,
		`{"distance_m": 4, "closing_velocity_ms": 2, "confidence": 0.95}`,
	}, "\n")

	sink := &recordingSink{engine: engine.New()}
	clock := func() time.Time { return time.Unix(50, 0) }

	stats, err := Decode(context.Background(), strings.NewReader(input), sink, WithClock(clock))
	require.NoError(t, err)
	require.Equal(t, Stats{Lines: 6, Accepted: 3, Skipped: 3}, stats)

	require.Len(t, sink.readings, 3)
	require.InDelta(t, 0.0, sink.readings[0].Timestamp, 0)
	require.InDelta(t, 3.0, sink.readings[1].Timestamp, 0)
	require.InDelta(t, 50.0, sink.readings[2].Timestamp, 0)
	require.Equal(t, safety.StateCare, sink.engine.CurrentState())
}

// TestDecode_SinkFailure stops on errors other than rejected readings.
func TestDecode_SinkFailure(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{engine: engine.New(), err: errTestSink}
	input := `{"distance_m": 6, "closing_velocity_ms": 2, "confidence": 0.95, "timestamp": 3}`

	_, err := Decode(context.Background(), strings.NewReader(input), sink)
	require.ErrorIs(t, err, errTestSink)
}

// TestDecode_Canceled returns the context error.
func TestDecode_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{engine: engine.New()}
	input := `{"distance_m": 6, "closing_velocity_ms": 2, "confidence": 0.95, "timestamp": 3}`

	stats, err := Decode(ctx, strings.NewReader(input), sink)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, stats.Accepted)
}

// TestOpen_RequiresPath rejects an empty device path.
func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("", 115200)
	require.ErrorIs(t, err, errPortRequired)
}

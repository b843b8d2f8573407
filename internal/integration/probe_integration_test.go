package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lsep/internal/service/probe"
)

// TestProbe_SendAndHistory sends readings with the probe and dumps the trail as JSON.
func TestProbe_SendAndHistory(t *testing.T) {
	t.Parallel()

	ts, stop := startServer(t)
	defer stop()

	ctx := context.Background()
	conn := probe.Options{ConfigPath: ts.configPath}

	for _, step := range []struct{ t, d, v float64 }{{1, 6, 2}, {2, 4, 2}} {
		timestamp := step.t

		var out bytes.Buffer

		require.NoError(t, probe.Send(ctx, &probe.SendOptions{
			Options:           conn,
			DistanceM:         step.d,
			ClosingVelocityMS: step.v,
			Confidence:        0.95,
			Timestamp:         &timestamp,
		}, &out))
		require.Contains(t, out.String(), "changed=true")
	}

	var out bytes.Buffer

	require.NoError(t, probe.History(ctx, &probe.HistoryOptions{Options: conn, JSON: true}, &out))

	var doc struct {
		Entries []struct {
			State string `json:"state"`
		} `json:"entries"`
	}

	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc.Entries, 2)
	require.Equal(t, "INTENT", doc.Entries[0].State)
	require.Equal(t, "CARE", doc.Entries[1].State)
}

// TestProbe_WatchReturnsOnCancel polls a live server and exits cleanly on cancel.
func TestProbe_WatchReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ts, stop := startServer(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := probe.Watch(ctx, &probe.WatchOptions{
		Options:      probe.Options{ConfigPath: ts.configPath},
		PollInterval: 50 * time.Millisecond,
	})
	require.NoError(t, err)
}

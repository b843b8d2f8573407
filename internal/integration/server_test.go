package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lsep/internal/config"
	"github.com/oshokin/lsep/internal/service/server"
)

// testServer is a running lsep-server with its settings.
type testServer struct {
	// addr is the gRPC address.
	addr string
	// httpAddr is the status API address.
	httpAddr string
	// configPath is the settings file the server was started with.
	configPath string
	// historyDB is the audit database path.
	historyDB string
}

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// waitForPort blocks until addr accepts connections.
func waitForPort(t *testing.T, addr string) {
	t.Helper()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}

		_ = conn.Close()

		return true
	}, 5*time.Second, 20*time.Millisecond)
}

// startServer writes a settings file, runs the server and returns a stop
// function that waits for Run to return.
func startServer(t *testing.T) (*testServer, func()) {
	t.Helper()

	dir := t.TempDir()
	ts := &testServer{
		addr:       reservePort(t),
		httpAddr:   reservePort(t),
		configPath: filepath.Join(dir, "lsep-settings.yaml"),
		historyDB:  filepath.Join(dir, "history.db"),
	}

	require.NoError(t, config.Save(ts.configPath, &config.Config{
		ServerAddress: ts.addr,
		HTTPAddress:   ts.httpAddr,
		HistoryDB:     ts.historyDB,
		Timeout:       5 * time.Second,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		// The listen override keeps the server on loopback.
		done <- server.Run(ctx, &server.Options{ConfigPath: ts.configPath, ListenAddress: ts.addr})
	}()

	waitForPort(t, ts.addr)
	waitForPort(t, ts.httpAddr)

	return ts, func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	}
}

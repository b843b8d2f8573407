package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/lsep/internal/config"
	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/logger"
	"github.com/oshokin/lsep/internal/repository/audit"
	"github.com/oshokin/lsep/internal/service/common"
)

// Options holds the connection settings shared by every probe operation.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// Timeout overrides the per-RPC timeout from the settings.
	Timeout time.Duration
}

// SendOptions describes the reading to send.
type SendOptions struct {
	Options

	DistanceM         float64
	ClosingVelocityMS float64
	Confidence        float64
	// Timestamp is sent as is when set; otherwise the local wall clock is used.
	Timestamp *float64
}

// WatchOptions controls state polling.
type WatchOptions struct {
	Options

	// PollInterval defines the interval between state checks.
	PollInterval time.Duration
}

// HistoryOptions controls the audit dump.
type HistoryOptions struct {
	Options

	// JSON selects the JSON export format instead of a table.
	JSON bool
}

// DefaultPollInterval is the state polling interval when none is given.
const DefaultPollInterval = time.Second

var errNoReading = errors.New("send options are required")

// Send evaluates one reading on the server and writes the decision to w.
func Send(ctx context.Context, opts *SendOptions, w io.Writer) error {
	if opts == nil {
		return errNoReading
	}

	ctx = logger.WithName(ctx, "lsep-probe")

	client, err := connect(ctx, &opts.Options)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	var readingOpts []safety.ReadingOption
	if opts.Timestamp != nil {
		readingOpts = append(readingOpts, safety.WithTimestamp(*opts.Timestamp))
	}

	reading := safety.NewSensorReading(opts.DistanceM, opts.ClosingVelocityMS, opts.Confidence, readingOpts...)

	result, err := client.DetermineState(ctx, reading)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Decision received", "state", result.State, "cause", result.Cause, "changed", result.Changed)

	_, err = fmt.Fprintf(w, "state=%s candidate=%s cause=%s ttc=%s changed=%t held=%t timestamp=%.3f\n",
		result.State, result.Candidate, result.Cause, common.FormatTTC(result.TTC), result.Changed, result.Held, result.Timestamp)

	return err
}

// Watch polls the server state and logs every change until ctx is canceled.
func Watch(ctx context.Context, opts *WatchOptions) error {
	ctx = logger.WithName(ctx, "lsep-probe")

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	client, err := connect(ctx, &opts.Options)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching decision server state", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last safety.Snapshot

	for {
		snapshot, pollErr := client.GetState(ctx)

		switch {
		case pollErr != nil && ctx.Err() != nil:
			return nil
		case pollErr != nil:
			logger.ErrorKV(ctx, "Get state failed", "error", pollErr)
		case snapshot != last:
			logger.InfoKV(ctx, "Safety state",
				"state", snapshot.State, "last_transition_time", snapshot.LastTransitionTime)

			last = snapshot
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
		}
	}
}

// History writes the server's audit trail to w.
func History(ctx context.Context, opts *HistoryOptions, w io.Writer) error {
	ctx = logger.WithName(ctx, "lsep-probe")

	client, err := connect(ctx, &opts.Options)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	entries, err := client.GetHistory(ctx)
	if err != nil {
		return err
	}

	if opts.JSON {
		return audit.Export(w, "", entries)
	}

	return common.WriteHistoryTable(w, entries)
}

// connect loads settings and dials the server.
func connect(ctx context.Context, opts *Options) (*common.Client, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	timeout := cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("dial server: %w", err)
	}

	logger.DebugKV(ctx, "Connected", "server_address", serverAddress)

	return client, nil
}

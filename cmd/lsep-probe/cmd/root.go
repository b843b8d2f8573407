package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/lsep/internal/config"
	"github.com/oshokin/lsep/internal/logger"
	"github.com/oshokin/lsep/internal/service/probe"
	"github.com/oshokin/lsep/internal/version"
)

var (
	// connection holds the flags shared by every subcommand.
	connection probe.Options
	// logLevel sets the log level.
	logLevel string

	// rootCmd groups the probe subcommands.
	rootCmd = &cobra.Command{
		Use:   "lsep-probe",
		Short: "Talk to a running LSEP decision server.",
		Long: `Sends readings to a decision server, watches its state and dumps its audit trail.
The server address and RPC timeout come from the configuration file unless overridden.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return logger.Configure(logLevel, string(logger.EncodingConsole))
		},
	}
)

// Execute runs the lsep-probe CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&connection.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&connection.ServerAddress, "server", "s", "", "server address, overrides server_addr")
	flags.DurationVar(&connection.Timeout, "timeout", 0, "per-call timeout, overrides timeout")
	flags.StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newSendCommand(), newWatchCommand(), newHistoryCommand())
}

func newSendCommand() *cobra.Command {
	var (
		opts      probe.SendOptions
		timestamp float64
	)

	command := &cobra.Command{
		Use:   "send",
		Short: "Evaluate one reading and print the decision.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			opts.Options = connection
			if cmd.Flags().Changed("timestamp") {
				opts.Timestamp = &timestamp
			}

			return probe.Send(ctx, &opts, cmd.OutOrStdout())
		},
	}

	flags := command.Flags()
	flags.Float64VarP(&opts.DistanceM, "distance", "d", 0, "distance to the nearest human, meters")
	flags.Float64VarP(&opts.ClosingVelocityMS, "velocity", "v", 0, "closing velocity, m/s (positive = approaching)")
	flags.Float64Var(&opts.Confidence, "confidence", 1, "fusion confidence in [0, 1]")
	flags.Float64VarP(&timestamp, "timestamp", "t", 0, "observation time in seconds; defaults to the wall clock")

	_ = command.MarkFlagRequired("distance")
	_ = command.MarkFlagRequired("velocity")

	return command
}

func newWatchCommand() *cobra.Command {
	var interval time.Duration

	command := &cobra.Command{
		Use:   "watch",
		Short: "Poll the server state and log every change.",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			ctx, stop := signalContext()
			defer stop()

			return probe.Watch(ctx, &probe.WatchOptions{Options: connection, PollInterval: interval})
		},
	}

	command.Flags().DurationVarP(&interval, "interval", "i", probe.DefaultPollInterval, "polling interval")

	return command
}

func newHistoryCommand() *cobra.Command {
	var asJSON bool

	command := &cobra.Command{
		Use:   "history",
		Short: "Print the server's audit trail.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return probe.History(ctx, &probe.HistoryOptions{Options: connection, JSON: asJSON}, cmd.OutOrStdout())
		},
	}

	command.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return command
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/lsep/internal/config"
	"github.com/oshokin/lsep/internal/service/server"
	"github.com/oshokin/lsep/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the status API address.
	httpAddress string
	// historyDB overrides the audit database path.
	historyDB string
	// serialPort overrides the serial ingest device.
	serialPort string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the decision server.
	rootCmd = &cobra.Command{
		Use:   "lsep-server [listen-address]",
		Short: "Run the LSEP safety decision server.",
		Long: `Starts the gRPC decision server that maps fused proximity readings to behavioural
safety states using Time-to-Collision.

Only the port from server_addr is used for listening (e.g. :7070); a listen address
argument overrides it. Every state transition is appended to the SQLite audit database
under a new session per run. When http_addr is set a read-only JSON status API is served,
and when serial.port is set readings are also ingested from that device as JSON lines.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				HistoryDB:     historyDB,
				SerialPort:    serialPort,
				LogLevel:      logLevel,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the lsep-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&httpAddress, "http", "", "status API address, overrides http_addr")
	flags.StringVar(&historyDB, "history-db", "", "audit database path, overrides history_db")
	flags.StringVar(&serialPort, "serial", "", "serial device streaming readings, overrides serial.port")
	flags.StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oshokin/lsep/internal/config"
	"github.com/oshokin/lsep/internal/engine"
	"github.com/oshokin/lsep/internal/logger"
	"github.com/oshokin/lsep/internal/repository/audit"
	"github.com/oshokin/lsep/internal/service/demo"
	"github.com/oshokin/lsep/internal/service/replay"
	"github.com/oshokin/lsep/internal/version"
)

var (
	// configPath optionally supplies engine tuning; empty uses the defaults.
	configPath string
	// logLevel sets the log level.
	logLevel string

	// rootCmd prints the approach walkthrough.
	rootCmd = &cobra.Command{
		Use:   "lsep-demo",
		Short: "Walk through a human approaching the robot.",
		Long: `Runs the built-in approach scenario through a fresh decision engine and prints
time, distance, closing velocity, TTC and the resulting state for each reading.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return logger.Configure(logLevel, string(logger.EncodingConsole))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := newEngine()
			if err != nil {
				return err
			}

			return demo.Run(cmd.OutOrStdout(), eng, demo.Scenario())
		},
	}
)

// Execute runs the lsep-demo CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "settings file with engine tuning; defaults when empty")
	flags.StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newReplayCommand())
}

// newEngine builds an engine with the configured or default tuning.
func newEngine() (*engine.Engine, error) {
	if configPath == "" {
		return engine.New(), nil
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return engine.New(engine.WithConfig(settings.Engine)), nil
}

func newReplayCommand() *cobra.Command {
	var exportPath string

	command := &cobra.Command{
		Use:   "replay <recording.yaml|recording.json>",
		Short: "Replay recorded readings and summarize the decisions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			readings, err := replay.Load(args[0])
			if err != nil {
				return err
			}

			eng, err := newEngine()
			if err != nil {
				return err
			}

			steps := replay.Run(eng, readings)
			out := cmd.OutOrStdout()

			if err = replay.WriteSteps(out, steps); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(out)

			if err = replay.WriteSummary(out, replay.Summarize(steps)); err != nil {
				return err
			}

			if exportPath == "" {
				return nil
			}

			return exportTrail(exportPath, eng)
		},
	}

	command.Flags().StringVarP(&exportPath, "export", "o", "", "write the audit trail as JSON to this file")

	return command
}

// exportTrail writes the engine's audit trail to path.
func exportTrail(path string, eng *engine.Engine) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	if err = audit.Export(f, "", eng.History()); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

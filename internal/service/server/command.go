package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/lsep/internal/api/grpc/safety"
	"github.com/oshokin/lsep/internal/api/http/status"
	"github.com/oshokin/lsep/internal/config"
	"github.com/oshokin/lsep/internal/engine"
	"github.com/oshokin/lsep/internal/ingest/serial"
	"github.com/oshokin/lsep/internal/logger"
	"github.com/oshokin/lsep/internal/repository/audit"
)

// Options controls the lsep-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress overrides the status API address; empty keeps the configured one.
	HTTPAddress string
	// HistoryDB overrides the audit database path.
	HistoryDB string
	// SerialPort overrides the serial ingest device.
	SerialPort string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the decision server and blocks until ctx is canceled or a
// component fails.
//
//nolint:funlen // Linear start-up sequence.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	if err = logger.Configure(settings.LogLevel, settings.LogEncoding); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	ctx = logger.WithName(ctx, "lsep-server")

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repo, err := audit.OpenSQLite(ctx, settings.HistoryDB)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}

	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close audit store", "error", closeErr)
		}
	}()

	sessionID, err := repo.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start audit session: %w", err)
	}

	ctx = logger.WithKV(ctx, "session_id", sessionID)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	svc := newService(groupCtx, engine.New(engine.WithConfig(settings.Engine)), repo, sessionID)

	grpcServer := grpc.NewServer()
	grpcapi.RegisterSafetyServiceServer(grpcServer, grpcapi.NewServer(svc))

	logger.InfoKV(ctx, "Decision server listening",
		"listen_address", listenAddress,
		"history_db", settings.HistoryDB,
	)

	group.Go(func() error {
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", serveErr)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	if settings.HTTPAddress != "" {
		app := status.New(svc, status.WithSessions(repo), status.WithSessionID(sessionID))

		group.Go(func() error {
			if serveErr := status.Serve(groupCtx, app, settings.HTTPAddress); serveErr != nil {
				return fmt.Errorf("serve status API: %w", serveErr)
			}

			return nil
		})
	}

	if settings.Serial.Port != "" {
		ingestCtx := serialContext(groupCtx, settings.Serial)

		group.Go(func() error {
			if _, streamErr := serial.Stream(ingestCtx, settings.Serial.Port, settings.Serial.BaudRate, svc); streamErr != nil {
				return fmt.Errorf("serial ingest: %w", streamErr)
			}

			return nil
		})
	}

	err = group.Wait()

	<-svc.Done()
	logger.Info(ctx, "Decision server stopped")

	return err
}

// applyOverrides copies non-empty command line values over the settings.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.HTTPAddress != "" {
		settings.HTTPAddress = opts.HTTPAddress
	}

	if opts.HistoryDB != "" {
		settings.HistoryDB = opts.HistoryDB
	}

	if opts.SerialPort != "" {
		settings.Serial.Port = opts.SerialPort
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}
}

// serialContext names the ingest logger and applies its level override.
func serialContext(ctx context.Context, cfg config.Serial) context.Context {
	ctx = logger.WithName(ctx, "serial")

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); cfg.LogLevel != "" && ok {
		ctx = logger.ToContext(ctx, logger.FromContext(ctx).WithOptions(logger.WithLevel(level)))
	}

	return logger.WithKV(ctx, "port", cfg.Port)
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/lsep/internal/engine"
	"github.com/oshokin/lsep/internal/logger"
)

// Config holds the parameters shared by the lsep binaries.
type Config struct {
	// ServerAddress is the gRPC address of the decision server.
	ServerAddress string `yaml:"server_addr"`
	// HTTPAddress enables the read-only status API when set.
	HTTPAddress string `yaml:"http_addr,omitempty"`
	// HistoryDB is the SQLite file receiving the audit trail.
	HistoryDB string `yaml:"history_db"`
	// Timeout bounds network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level of the global logger.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogEncoding is "console" or "json".
	LogEncoding string `yaml:"log_encoding,omitempty"`
	// Serial configures ingest of fused readings from a serial port.
	Serial Serial `yaml:"serial,omitempty"`
	// Engine is the decision tuning. Load starts from the reference tuning, so
	// keys missing from the file keep their defaults and explicit zeros stay zero.
	// An entirely unset Engine passed to Validate takes the reference tuning.
	Engine engine.Config `yaml:"engine"`
}

// Serial describes the port that streams fused readings.
type Serial struct {
	// Port is the device path, e.g. /dev/ttyUSB0. Empty disables serial ingest.
	Port string `yaml:"port,omitempty"`
	// BaudRate of the port.
	BaudRate int `yaml:"baud_rate,omitempty"`
	// LogLevel overrides the log level of the ingest loop.
	LogLevel string `yaml:"log_level,omitempty"`
}

const (
	// DefaultConfigFilename is the default settings filename.
	DefaultConfigFilename = "lsep-settings.yaml"

	// DefaultHistoryDB is the default audit database filename.
	DefaultHistoryDB = "lsep-history.db"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultBaudRate matches common fusion boards.
	DefaultBaudRate = 115200

	// DefaultFilePermissions is the permission for files written by lsep.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerAddressRequired is returned when server address is missing.
	errServerAddressRequired = errors.New("server address must be provided")
	// errBadLogLevel is returned for unknown log levels.
	errBadLogLevel = errors.New("unknown log level")
	// errBadBaudRate is returned for non-positive baud rates.
	errBadBaudRate = errors.New("baud rate must be positive")
)

// Load reads configuration from path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Config{Engine: engine.DefaultConfig()}
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save validates cfg and writes it to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults in place.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http address: %w", err)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.HistoryDB == "" {
		settings.HistoryDB = DefaultHistoryDB
	}

	for _, level := range []string{settings.LogLevel, settings.Serial.LogLevel} {
		if _, ok := logger.ParseLogLevel(level); !ok {
			return fmt.Errorf("%w: %q", errBadLogLevel, level)
		}
	}

	if settings.Serial.Port != "" {
		switch {
		case settings.Serial.BaudRate == 0:
			settings.Serial.BaudRate = DefaultBaudRate
		case settings.Serial.BaudRate < 0:
			return errBadBaudRate
		}
	}

	fillEngineDefaults(&settings.Engine)

	if err := settings.Engine.Validate(); err != nil {
		return fmt.Errorf("engine settings: %w", err)
	}

	return nil
}

// fillEngineDefaults gives an unset engine section the reference tuning and
// an empty threshold table the reference table. Scalar fields are kept as
// given, zero included.
func fillEngineDefaults(c *engine.Config) {
	def := engine.DefaultConfig()

	if len(c.Thresholds) == 0 {
		c.Thresholds = def.Thresholds
	}

	if c.ConfidenceLow == 0 && c.ConfidenceMed == 0 && c.ThreatBypassTTC == 0 &&
		c.ProximityFloorM == 0 && c.Cooldown == 0 {
		def.Thresholds = c.Thresholds
		*c = def
	}
}

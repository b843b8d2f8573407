package engine

import (
	"errors"
	"fmt"

	"github.com/oshokin/lsep/internal/domain/safety"
)

// Threshold pairs a ladder state with the TTC (seconds) below which it applies.
type Threshold struct {
	State   safety.State `yaml:"state"`
	Seconds float64      `yaml:"seconds"`
}

// Config holds the numeric tuning of the decision pipeline.
type Config struct {
	// ConfidenceLow is the bound below which readings degrade to LOW_CONF.
	ConfidenceLow float64 `yaml:"confidence_low"`
	// ConfidenceMed is the bound below which readings degrade to MED_CONF.
	ConfidenceMed float64 `yaml:"confidence_med"`
	// ThreatBypassTTC is the TTC below which THREAT skips the hysteresis filter.
	ThreatBypassTTC float64 `yaml:"threat_bypass_ttc"`
	// ProximityFloorM is the distance under which a non-closing human keeps AWARENESS.
	ProximityFloorM float64 `yaml:"proximity_floor_m"`
	// Cooldown is how long (seconds) a state must hold before de-escalation.
	Cooldown float64 `yaml:"cooldown"`
	// Thresholds is scanned in order; the first entry whose value exceeds TTC wins.
	Thresholds []Threshold `yaml:"thresholds"`
}

const (
	// DefaultConfidenceLow is the LOW_CONF bound.
	DefaultConfidenceLow = 0.4
	// DefaultConfidenceMed is the MED_CONF bound.
	DefaultConfidenceMed = 0.7
	// DefaultThreatBypassTTC is the hysteresis bypass TTC in seconds.
	DefaultThreatBypassTTC = 0.5
	// DefaultProximityFloorM is the proximity floor distance in meters.
	DefaultProximityFloorM = 1.5
	// DefaultCooldown is the de-escalation cooldown in seconds.
	DefaultCooldown = 2.0
)

// tableOrder is the only accepted order of the threshold table, most severe first.
//
//nolint:gochecknoglobals // Fixed lookup table.
var tableOrder = [...]safety.State{
	safety.StateThreat,
	safety.StateCritical,
	safety.StateCare,
	safety.StateIntent,
	safety.StateAwareness,
}

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid engine config")

	errConfidenceBounds = errors.New("confidence bounds must satisfy 0 <= low <= med <= 1")
	errNegativeValue    = errors.New("bypass TTC, proximity floor and cooldown must not be negative")
	errTableShape       = errors.New("threshold table must list THREAT, CRITICAL, CARE, INTENT, AWARENESS in that order")
	errTableValues      = errors.New("threshold values must be positive and strictly increasing")
)

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		ConfidenceLow:   DefaultConfidenceLow,
		ConfidenceMed:   DefaultConfidenceMed,
		ThreatBypassTTC: DefaultThreatBypassTTC,
		ProximityFloorM: DefaultProximityFloorM,
		Cooldown:        DefaultCooldown,
		Thresholds:      DefaultThresholds(),
	}
}

// DefaultThresholds returns THREAT:0.5, CRITICAL:1.5, CARE:3.0, INTENT:5.0, AWARENESS:10.0.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{State: safety.StateThreat, Seconds: 0.5},
		{State: safety.StateCritical, Seconds: 1.5},
		{State: safety.StateCare, Seconds: 3.0},
		{State: safety.StateIntent, Seconds: 5.0},
		{State: safety.StateAwareness, Seconds: 10.0},
	}
}

// Validate checks the tuning. The table order is fixed; only values may change.
func (c *Config) Validate() error {
	if c.ConfidenceLow < 0 || c.ConfidenceLow > c.ConfidenceMed || c.ConfidenceMed > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errConfidenceBounds)
	}

	if c.ThreatBypassTTC < 0 || c.ProximityFloorM < 0 || c.Cooldown < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errNegativeValue)
	}

	if len(c.Thresholds) != len(tableOrder) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errTableShape)
	}

	prev := 0.0

	for i, th := range c.Thresholds {
		if th.State != tableOrder[i] {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, errTableShape)
		}

		if th.Seconds <= prev {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, errTableValues)
		}

		prev = th.Seconds
	}

	return nil
}

package safety

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SensorReading is one fused proximity observation.
// Readings are values; nothing mutates them after construction.
type SensorReading struct {
	// DistanceM is the distance to the nearest human in meters.
	DistanceM float64
	// ClosingVelocityMS is the closing speed in m/s; positive means approaching.
	ClosingVelocityMS float64
	// Confidence is the reliability of the fused estimate in [0, 1].
	Confidence float64
	// Timestamp is the observation time in seconds.
	Timestamp float64
}

// ReadingOption customizes NewSensorReading.
type ReadingOption func(*readingOptions)

// readingOptions collects the optional inputs of NewSensorReading.
type readingOptions struct {
	// timestamp is the explicit observation time, if any.
	timestamp *float64
	// clock supplies wall-clock time when no timestamp is given.
	clock func() time.Time
}

// WithTimestamp sets an explicit observation timestamp in seconds.
// Zero is a valid explicit timestamp.
func WithTimestamp(ts float64) ReadingOption {
	return func(o *readingOptions) {
		o.timestamp = &ts
	}
}

// WithClock overrides the wall clock used when no timestamp is given.
func WithClock(clock func() time.Time) ReadingOption {
	return func(o *readingOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewSensorReading builds a reading. Without WithTimestamp the current
// wall-clock time is captured once, here.
func NewSensorReading(distanceM, closingVelocityMS, confidence float64, opts ...ReadingOption) SensorReading {
	o := readingOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	ts := UnixSeconds(o.clock())
	if o.timestamp != nil {
		ts = *o.timestamp
	}

	return SensorReading{
		DistanceM:         distanceM,
		ClosingVelocityMS: closingVelocityMS,
		Confidence:        confidence,
		Timestamp:         ts,
	}
}

// UnixSeconds converts t to fractional seconds since the Unix epoch.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Validation errors returned by Validate.
var (
	ErrInvalidReading     = errors.New("invalid sensor reading")
	errNonFinite          = errors.New("value is not finite")
	errNegativeDistance   = errors.New("distance must not be negative")
	errConfidenceOutRange = errors.New("confidence must be within [0, 1]")
)

// Validate checks that r is physically meaningful. The decision engine
// never calls it; ingest boundaries do.
func Validate(r SensorReading) error {
	for name, v := range map[string]float64{
		"distance_m":          r.DistanceM,
		"closing_velocity_ms": r.ClosingVelocityMS,
		"confidence":          r.Confidence,
		"timestamp":           r.Timestamp,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s: %w", ErrInvalidReading, name, errNonFinite)
		}
	}

	if r.DistanceM < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidReading, errNegativeDistance)
	}

	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidReading, errConfidenceOutRange)
	}

	return nil
}

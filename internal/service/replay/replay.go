package replay

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
	"github.com/oshokin/lsep/internal/service/common"
)

// File is the on-disk recording format. JSON files are accepted as well,
// since every JSON document is valid YAML.
type File struct {
	Readings []Reading `yaml:"readings"`
}

// Reading is one recorded reading. Timestamps are required in recordings.
type Reading struct {
	DistanceM         float64  `yaml:"distance_m"`
	ClosingVelocityMS float64  `yaml:"closing_velocity_ms"`
	Confidence        float64  `yaml:"confidence"`
	Timestamp         *float64 `yaml:"timestamp"`
}

// Step is the outcome of one reading.
type Step struct {
	Reading  safety.SensorReading
	Decision engine.Decision
}

// Summary aggregates a replay.
type Summary struct {
	// Readings is the number of readings evaluated.
	Readings int
	// Transitions is the number of audit entries recorded.
	Transitions int
	// Held counts readings whose candidate the cooldown suppressed.
	Held int
	// Gated counts readings degraded by the confidence gate.
	Gated int
	// MinTTC and MeanTTC cover finite TTC values only; NaN when there are none.
	MinTTC  float64
	MeanTTC float64
	// Dwell is the time spent in each state between the first and last reading.
	Dwell map[safety.State]float64
}

var (
	errNoReadings       = errors.New("recording has no readings")
	errMissingTimestamp = errors.New("reading has no timestamp")
	errUnordered        = errors.New("readings are not in timestamp order")
)

// Load reads and validates a recording.
func Load(path string) ([]safety.SensorReading, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return Parse(data)
}

// Parse decodes a recording. Every reading must be valid and carry a
// timestamp, and timestamps must not decrease.
func Parse(data []byte) ([]safety.SensorReading, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}

	if len(f.Readings) == 0 {
		return nil, errNoReadings
	}

	out := make([]safety.SensorReading, 0, len(f.Readings))

	for i, r := range f.Readings {
		if r.Timestamp == nil {
			return nil, fmt.Errorf("reading %d: %w", i, errMissingTimestamp)
		}

		reading := safety.NewSensorReading(r.DistanceM, r.ClosingVelocityMS, r.Confidence,
			safety.WithTimestamp(*r.Timestamp))

		if err := safety.Validate(reading); err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}

		if i > 0 && reading.Timestamp < out[i-1].Timestamp {
			return nil, fmt.Errorf("reading %d: %w", i, errUnordered)
		}

		out = append(out, reading)
	}

	return out, nil
}

// Run evaluates readings in order on eng.
func Run(eng *engine.Engine, readings []safety.SensorReading) []Step {
	steps := make([]Step, 0, len(readings))

	for _, r := range readings {
		steps = append(steps, Step{Reading: r, Decision: eng.Evaluate(r)})
	}

	return steps
}

// Summarize aggregates steps.
func Summarize(steps []Step) Summary {
	s := Summary{
		Readings: len(steps),
		MinTTC:   math.NaN(),
		MeanTTC:  math.NaN(),
		Dwell:    make(map[safety.State]float64),
	}

	var finite []float64

	durations := make(map[safety.State][]float64)

	for i, step := range steps {
		d := step.Decision

		if d.Changed {
			s.Transitions++
		}

		if d.Held {
			s.Held++
		}

		if d.Cause == safety.CauseConfidenceLow || d.Cause == safety.CauseConfidenceMed {
			s.Gated++
		}

		if !math.IsNaN(d.TTC) && !math.IsInf(d.TTC, 0) {
			finite = append(finite, d.TTC)
		}

		if i > 0 {
			prev := steps[i-1]
			durations[prev.Decision.State] = append(durations[prev.Decision.State],
				step.Reading.Timestamp-prev.Reading.Timestamp)
		}
	}

	if len(finite) > 0 {
		s.MinTTC = floats.Min(finite)
		s.MeanTTC = stat.Mean(finite, nil)
	}

	for state, ds := range durations {
		s.Dwell[state] = floats.Sum(ds)
	}

	return s
}

// WriteSteps prints one row per step.
func WriteSteps(w io.Writer, steps []Step) error {
	tw := common.NewTable(w)

	_, _ = fmt.Fprintln(tw, "TIME\tDIST\tVEL\tCONF\tTTC\tCANDIDATE\tSTATE\tNOTE")

	for _, step := range steps {
		r, d := step.Reading, step.Decision

		note := ""

		switch {
		case d.Changed:
			note = "transition (" + string(d.Cause) + ")"
		case d.Held:
			note = "held"
		}

		_, _ = fmt.Fprintf(tw, "%.1f\t%.1fm\t%.1f\t%.2f\t%s\t%s\t%s\t%s\n",
			r.Timestamp, r.DistanceM, r.ClosingVelocityMS, r.Confidence,
			common.FormatTTC(d.TTC), d.Candidate, d.State, note)
	}

	return tw.Flush()
}

// WriteSummary prints s.
func WriteSummary(w io.Writer, s Summary) error {
	tw := common.NewTable(w)

	_, _ = fmt.Fprintf(tw, "readings\t%d\n", s.Readings)
	_, _ = fmt.Fprintf(tw, "transitions\t%d\n", s.Transitions)
	_, _ = fmt.Fprintf(tw, "held\t%d\n", s.Held)
	_, _ = fmt.Fprintf(tw, "gated\t%d\n", s.Gated)
	_, _ = fmt.Fprintf(tw, "min ttc\t%s\n", common.FormatTTC(s.MinTTC))
	_, _ = fmt.Fprintf(tw, "mean ttc\t%s\n", common.FormatTTC(s.MeanTTC))

	for _, state := range sortedStates(s.Dwell) {
		_, _ = fmt.Fprintf(tw, "dwell %s\t%.2fs\n", state, s.Dwell[state])
	}

	return tw.Flush()
}

// sortedStates orders states by severity, then by name.
func sortedStates(m map[safety.State]float64) []safety.State {
	out := make([]safety.State, 0, len(m))
	for state := range m {
		out = append(out, state)
	}

	slices.SortFunc(out, func(a, b safety.State) int {
		return cmp.Or(cmp.Compare(safety.Severity(a), safety.Severity(b)), cmp.Compare(a, b))
	})

	return out
}

package demo

import (
	"fmt"
	"io"
	"strings"

	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
	"github.com/oshokin/lsep/internal/service/common"
)

const ruleWidth = 55

// Scenario is a person walking up to the robot at constant confidence.
func Scenario() []safety.SensorReading {
	const confidence = 0.95

	steps := []struct{ t, d, v float64 }{
		{0, 12.0, 0.0},
		{1, 8.0, 1.2},
		{2, 4.5, 1.2},
		{3, 2.8, 1.2},
		{4, 1.2, 1.5},
		{5, 0.4, 2.0},
	}

	out := make([]safety.SensorReading, 0, len(steps))
	for _, s := range steps {
		out = append(out, safety.NewSensorReading(s.d, s.v, confidence, safety.WithTimestamp(s.t)))
	}

	return out
}

// Run evaluates readings on eng and prints one row per reading.
func Run(w io.Writer, eng *engine.Engine, readings []safety.SensorReading) error {
	rule := strings.Repeat("-", ruleWidth)

	_, _ = fmt.Fprintln(w, "LSEP SafetyDecisionEngine demo")
	_, _ = fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
	_, _ = fmt.Fprintf(w, "%5s  %6s  %5s  %7s  %-12s\n", "Time", "Dist", "Vel", "TTC", "State")
	_, _ = fmt.Fprintln(w, rule)

	for _, r := range readings {
		state := eng.DetermineState(r)
		ttc := engine.ComputeTTC(r.DistanceM, r.ClosingVelocityMS)

		ttcText := common.FormatTTC(ttc)
		if ttcText != "∞" {
			ttcText += "s"
		}

		_, _ = fmt.Fprintf(w, "%5.1f  %5.1fm  %5.1f  %7s  %-12s\n",
			r.Timestamp, r.DistanceM, r.ClosingVelocityMS, ttcText, state)
	}

	_, err := fmt.Fprintln(w, rule)

	return err
}

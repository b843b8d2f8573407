package engine

import (
	"math"

	"github.com/oshokin/lsep/internal/domain/safety"
)

// Candidate is the outcome of mapping one trusted reading to a state.
type Candidate struct {
	// State is the proposed state.
	State safety.State
	// Cause is the rule that proposed it.
	Cause safety.Cause
	// Bypass is true when the candidate skips the hysteresis filter.
	Bypass bool
}

// Map turns a TTC and distance into a candidate state. Rules are checked in
// this order: THREAT bypass, proximity floor, then the threshold table.
func (c *Config) Map(ttc, distanceM float64) Candidate {
	if ttc < c.ThreatBypassTTC {
		return Candidate{State: safety.StateThreat, Cause: safety.CauseThreatBypass, Bypass: true}
	}

	if distanceM < c.ProximityFloorM && math.IsInf(ttc, 1) {
		return Candidate{State: safety.StateAwareness, Cause: safety.CauseProximityFloor}
	}

	return Candidate{State: c.lookup(ttc), Cause: safety.CauseThreshold}
}

// lookup scans the table most-severe first and returns the first state whose
// threshold strictly exceeds ttc, or IDLE.
func (c *Config) lookup(ttc float64) safety.State {
	for _, th := range c.Thresholds {
		if ttc < th.Seconds {
			return th.State
		}
	}

	return safety.StateIdle
}

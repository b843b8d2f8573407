package safety

// Cause names the decision rule that produced a transition.
type Cause string

// Decision rules, in the order the engine evaluates them.
const (
	CauseConfidenceLow  Cause = "confidence_low"
	CauseConfidenceMed  Cause = "confidence_med"
	CauseThreatBypass   Cause = "threat_bypass"
	CauseProximityFloor Cause = "proximity_floor"
	CauseThreshold      Cause = "threshold"
)

// Transition is one entry of the append-only audit trail.
type Transition struct {
	// Timestamp is when the transition fired, in seconds.
	Timestamp float64
	// State is the state entered.
	State State
	// TTCAtTransition records the firing timestamp as the causing snapshot point.
	TTCAtTransition float64
	// Cause is the rule that produced the transition.
	Cause Cause
}

// CloneTransitions returns a copy of the trail so callers cannot alter the original.
func CloneTransitions(in []Transition) []Transition {
	if in == nil {
		return nil
	}

	out := make([]Transition, len(in))
	copy(out, in)

	return out
}

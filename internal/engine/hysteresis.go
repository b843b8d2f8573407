package engine

import "github.com/oshokin/lsep/internal/domain/safety"

// Admit decides whether a candidate from the threshold mapper takes effect.
// Escalation is immediate; anything else waits out the cooldown measured
// from the last recorded transition.
func (c *Config) Admit(candidate, current safety.State, timestamp, lastTransition float64) bool {
	if safety.Severity(candidate) > safety.Severity(current) {
		return true
	}

	return timestamp-lastTransition >= c.Cooldown
}

package engine

import "github.com/oshokin/lsep/internal/domain/safety"

// Gate classifies reading reliability before any physics is trusted.
// It returns the degraded state and true when confidence is too low.
func (c *Config) Gate(confidence float64) (safety.State, safety.Cause, bool) {
	switch {
	case confidence < c.ConfidenceLow:
		return safety.StateLowConf, safety.CauseConfidenceLow, true
	case confidence < c.ConfidenceMed:
		return safety.StateMedConf, safety.CauseConfidenceMed, true
	default:
		return "", "", false
	}
}

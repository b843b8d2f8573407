package safety

import (
	"errors"
	"fmt"
)

// State is a behavioural safety state of the robot.
type State string

// Core severity ladder, ordered from least to most severe.
const (
	StateIdle      State = "IDLE"
	StateAwareness State = "AWARENESS"
	StateIntent    State = "INTENT"
	StateCare      State = "CARE"
	StateCritical  State = "CRITICAL"
	StateThreat    State = "THREAT"
)

// Extended states. They are not members of the severity ladder.
const (
	StateMedConf State = "MED_CONF"
	StateLowConf State = "LOW_CONF"
	// StateIntegrity is defined but no decision rule produces it.
	StateIntegrity State = "INTEGRITY"
)

// ErrUnknownState is returned when a string does not name a State.
var ErrUnknownState = errors.New("unknown state")

// ladder lists the severity ladder from least to most severe.
//
//nolint:gochecknoglobals // Fixed lookup table.
var ladder = [...]State{
	StateIdle,
	StateAwareness,
	StateIntent,
	StateCare,
	StateCritical,
	StateThreat,
}

// States returns all nine states: the ladder first, then the extended tags.
func States() []State {
	return []State{
		StateIdle,
		StateAwareness,
		StateIntent,
		StateCare,
		StateCritical,
		StateThreat,
		StateMedConf,
		StateLowConf,
		StateIntegrity,
	}
}

// Severity returns the ladder position of s (IDLE=0 ... THREAT=5).
// States outside the ladder rank 0.
func Severity(s State) int {
	for i, l := range ladder {
		if l == s {
			return i
		}
	}

	return 0
}

// IsLadder reports whether s belongs to the severity ladder.
func (s State) IsLadder() bool {
	for _, l := range ladder {
		if l == s {
			return true
		}
	}

	return false
}

// IsExtended reports whether s is one of MED_CONF, LOW_CONF or INTEGRITY.
func (s State) IsExtended() bool {
	switch s {
	case StateMedConf, StateLowConf, StateIntegrity:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the nine defined states.
func (s State) Valid() bool {
	return s.IsLadder() || s.IsExtended()
}

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// ParseState converts a tag such as "CARE" into a State.
func ParseState(tag string) (State, error) {
	s := State(tag)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, tag)
	}

	return s, nil
}

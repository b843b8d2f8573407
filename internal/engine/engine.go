package engine

import (
	"math"

	"github.com/oshokin/lsep/internal/domain/safety"
)

// Engine owns the current state, the time of the last transition and the
// audit trail. It is not safe for concurrent use.
type Engine struct {
	// cfg is the decision tuning.
	cfg Config
	// current is the state in effect.
	current safety.State
	// lastTransition is the timestamp of the last appended entry, or 0.
	lastTransition float64
	// history is the append-only audit trail.
	history []safety.Transition
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default tuning. The caller validates cfg.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		cfg.Thresholds = append([]Threshold(nil), cfg.Thresholds...)
		e.cfg = cfg
	}
}

// New returns an engine in IDLE with an empty history.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:     DefaultConfig(),
		current: safety.StateIdle,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Decision describes how one reading was handled.
type Decision struct {
	// State is the state in effect after the reading.
	State safety.State
	// Candidate is the state the pipeline proposed.
	Candidate safety.State
	// Cause is the rule behind the candidate.
	Cause safety.Cause
	// TTC is the computed time-to-collision; NaN when the confidence gate fired.
	TTC float64
	// Changed is true when a transition was recorded.
	Changed bool
	// Held is true when the hysteresis filter kept the previous state.
	Held bool
}

// DetermineState runs the full pipeline for one reading and returns the
// resulting state. It never fails.
func (e *Engine) DetermineState(r safety.SensorReading) safety.State {
	return e.Evaluate(r).State
}

// Evaluate is DetermineState with the intermediate results exposed.
func (e *Engine) Evaluate(r safety.SensorReading) Decision {
	if degraded, cause, ok := e.cfg.Gate(r.Confidence); ok {
		return e.decide(degraded, cause, math.NaN(), r.Timestamp, true)
	}

	ttc := ComputeTTC(r.DistanceM, r.ClosingVelocityMS)
	candidate := e.cfg.Map(ttc, r.DistanceM)

	return e.decide(candidate.State, candidate.Cause, ttc, r.Timestamp, candidate.Bypass)
}

// decide routes a candidate through the hysteresis filter unless it bypasses it.
func (e *Engine) decide(candidate safety.State, cause safety.Cause, ttc, timestamp float64, bypass bool) Decision {
	d := Decision{
		Candidate: candidate,
		Cause:     cause,
		TTC:       ttc,
	}

	if !bypass && !e.cfg.Admit(candidate, e.current, timestamp, e.lastTransition) {
		d.State = e.current
		d.Held = candidate != e.current

		return d
	}

	before := e.current
	d.State = e.apply(candidate, timestamp, cause)
	d.Changed = d.State != before

	return d
}

// apply is the transition recorder and the only mutator of engine state.
func (e *Engine) apply(next safety.State, timestamp float64, cause safety.Cause) safety.State {
	if next == e.current {
		return e.current
	}

	e.history = append(e.history, safety.Transition{
		Timestamp:       timestamp,
		State:           next,
		TTCAtTransition: timestamp,
		Cause:           cause,
	})
	e.current = next
	e.lastTransition = timestamp

	return next
}

// CurrentState returns the state in effect.
func (e *Engine) CurrentState() safety.State {
	return e.current
}

// LastTransitionTime returns the timestamp of the last recorded transition, or 0.
func (e *Engine) LastTransitionTime() float64 {
	return e.lastTransition
}

// History returns a copy of the audit trail in insertion order.
func (e *Engine) History() []safety.Transition {
	return safety.CloneTransitions(e.history)
}

// LastTransition returns the newest audit entry, if any.
func (e *Engine) LastTransition() (safety.Transition, bool) {
	if len(e.history) == 0 {
		return safety.Transition{}, false
	}

	return e.history[len(e.history)-1], true
}

// Config returns a copy of the engine tuning.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.Thresholds = append([]Threshold(nil), e.cfg.Thresholds...)

	return cfg
}

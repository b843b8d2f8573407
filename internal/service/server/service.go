package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
	"github.com/oshokin/lsep/internal/logger"
	"github.com/oshokin/lsep/internal/repository/audit"
)

// errServiceStopped is returned for requests made after the worker exited.
var errServiceStopped = errors.New("decision service stopped")

// operation runs on the worker goroutine with the worker's context.
type operation func(ctx context.Context)

// service serializes access to one engine and records its transitions.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// engine is touched only by the worker goroutine.
	engine *engine.Engine
	// repo persists new transitions; nil disables persistence.
	repo audit.Repository
	// sessionID groups this run's transitions in repo.
	sessionID string
	// ops queues work for the worker.
	ops chan operation
	// done is closed when the worker exits.
	done chan struct{}
	// lastTimestamp is the timestamp of the last accepted reading.
	lastTimestamp float64
	// accepted reports whether any reading was accepted yet.
	accepted bool
}

// newService starts the worker. It stops when ctx is done.
func newService(ctx context.Context, eng *engine.Engine, repo audit.Repository, sessionID string) *service {
	s := &service{
		engine:    eng,
		repo:      repo,
		sessionID: sessionID,
		ops:       make(chan operation),
		done:      make(chan struct{}),
	}

	go s.loop(ctx)

	return s
}

func (s *service) loop(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-s.ops:
			op(ctx)
		}
	}
}

// do runs fn on the worker and waits for it to finish.
func (s *service) do(ctx context.Context, fn operation) error {
	finished := make(chan struct{})

	wrapped := func(workerCtx context.Context) {
		defer close(finished)

		fn(workerCtx)
	}

	select {
	case s.ops <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errServiceStopped
	}

	<-finished

	return nil
}

// Done is closed once the worker has exited.
func (s *service) Done() <-chan struct{} {
	return s.done
}

// Evaluate validates the reading, checks ordering and runs the engine.
func (s *service) Evaluate(ctx context.Context, reading safety.SensorReading) (engine.Decision, error) {
	if err := safety.Validate(reading); err != nil {
		return engine.Decision{}, err
	}

	var (
		decision engine.Decision
		opErr    error
	)

	err := s.do(ctx, func(workerCtx context.Context) {
		if s.accepted && reading.Timestamp < s.lastTimestamp {
			opErr = fmt.Errorf("%w: %g < %g", safety.ErrOutOfOrder, reading.Timestamp, s.lastTimestamp)

			return
		}

		previous := s.engine.CurrentState()

		s.accepted = true
		s.lastTimestamp = reading.Timestamp
		decision = s.engine.Evaluate(reading)

		switch {
		case decision.Changed:
			s.recordTransition(workerCtx, previous, decision)
		case decision.Held:
			logger.DebugKV(ctx, "Transition held by cooldown",
				"state", decision.State, "candidate", decision.Candidate, "timestamp", reading.Timestamp)
		}
	})
	if err != nil {
		return engine.Decision{}, err
	}

	return decision, opErr
}

// recordTransition logs and persists the entry the engine just appended.
// Persistence failures are logged; the engine state stays authoritative.
func (s *service) recordTransition(ctx context.Context, previous safety.State, decision engine.Decision) {
	entry, ok := s.engine.LastTransition()
	if !ok {
		return
	}

	logger.InfoKV(ctx, "Safety state changed",
		"from", previous,
		"to", entry.State,
		"cause", entry.Cause,
		"ttc", decision.TTC,
		"timestamp", entry.Timestamp,
	)

	if s.repo == nil {
		return
	}

	if err := s.repo.Append(ctx, s.sessionID, entry); err != nil {
		logger.ErrorKV(ctx, "Failed to persist transition", "state", entry.State, "error", err)
	}
}

// Snapshot returns the current state and last transition time.
func (s *service) Snapshot(ctx context.Context) (safety.Snapshot, error) {
	var snapshot safety.Snapshot

	err := s.do(ctx, func(context.Context) {
		snapshot = safety.Snapshot{
			State:              s.engine.CurrentState(),
			LastTransitionTime: s.engine.LastTransitionTime(),
		}
	})

	return snapshot, err
}

// History returns a copy of the in-memory audit trail.
func (s *service) History(ctx context.Context) ([]safety.Transition, error) {
	var history []safety.Transition

	err := s.do(ctx, func(context.Context) {
		history = s.engine.History()
	})

	return history, err
}

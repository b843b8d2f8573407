package audit

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/lsep/internal/domain/safety"
)

// Repository defines persistence operations for the transition trail.
type Repository interface {
	StartSession(ctx context.Context) (string, error)
	Append(ctx context.Context, sessionID string, entries ...safety.Transition) error
	List(ctx context.Context, sessionID string) ([]safety.Transition, error)
	Sessions(ctx context.Context) ([]Session, error)
}

// Session is one server run that produced transitions.
type Session struct {
	// ID is the session UUID.
	ID string
	// StartedAt is when the session was opened.
	StartedAt time.Time
	// Transitions is the number of stored entries.
	Transitions int
}

var (
	// ErrSessionNotFound is returned when appending to or listing an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// errSessionRequired is returned for an empty session ID.
	errSessionRequired = errors.New("session id is required")
)

package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/logger"
	"github.com/oshokin/lsep/internal/repository/audit"
	"github.com/oshokin/lsep/internal/version"
)

// Reader exposes the live engine state.
type Reader interface {
	Snapshot(ctx context.Context) (safety.Snapshot, error)
	History(ctx context.Context) ([]safety.Transition, error)
}

// SessionStore exposes persisted sessions.
type SessionStore interface {
	Sessions(ctx context.Context) ([]audit.Session, error)
	List(ctx context.Context, sessionID string) ([]safety.Transition, error)
}

// Option configures the app.
type Option func(*handlers)

// WithSessions enables the /api/sessions routes.
func WithSessions(store SessionStore) Option {
	return func(h *handlers) {
		h.sessions = store
	}
}

// WithSessionID reports the live session in /api/state.
func WithSessionID(id string) Option {
	return func(h *handlers) {
		h.sessionID = id
	}
}

// handlers serves the routes of the status API.
type handlers struct {
	// reader is the live engine view.
	reader Reader
	// sessions is the optional audit store.
	sessions SessionStore
	// sessionID identifies the running session.
	sessionID string
}

// New builds the fiber app.
func New(reader Reader, opts ...Option) *fiber.App {
	h := &handlers{reader: reader}
	for _, opt := range opts {
		opt(h)
	}

	app := fiber.New(fiber.Config{
		AppName:               "lsep-status",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())

	api := app.Group("/api")
	api.Get("/healthz", h.healthz)
	api.Get("/state", h.state)
	api.Get("/history", h.history)

	if h.sessions != nil {
		api.Get("/sessions", h.listSessions)
		api.Get("/sessions/:id/transitions", h.sessionTransitions)
	}

	return app
}

// shutdownTimeout bounds the wait for in-flight requests on shutdown.
const shutdownTimeout = 5 * time.Second

// Serve runs app on address until ctx is done.
func Serve(ctx context.Context, app *fiber.App, address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", address, err)
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listener(ln)
	}()

	logger.InfoKV(ctx, "Status API listening", "http_address", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(ctx, "Shutting down status API")

	shutdownErr := app.ShutdownWithTimeout(shutdownTimeout)

	// Shutdown only closes listeners the server has started accepting on.
	_ = ln.Close()

	if err = <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return shutdownErr
}

// transitionView is the JSON form of one audit entry.
type transitionView struct {
	Timestamp       float64 `json:"timestamp"`
	State           string  `json:"state"`
	TTCAtTransition float64 `json:"ttc_at_transition"`
	Cause           string  `json:"cause"`
}

// sessionView is the JSON form of one audit session.
type sessionView struct {
	ID          string `json:"id"`
	StartedAt   string `json:"started_at"`
	Transitions int    `json:"transitions"`
}

// healthz reports liveness and the build version.
func (h *handlers) healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": version.Short(),
	})
}

// state returns the live engine state.
func (h *handlers) state(c *fiber.Ctx) error {
	snapshot, err := h.reader.Snapshot(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"state":                string(snapshot.State),
		"last_transition_time": snapshot.LastTransitionTime,
		"session_id":           h.sessionID,
	})
}

// history returns the in-memory transitions of the running session.
func (h *handlers) history(c *fiber.Ctx) error {
	entries, err := h.reader.History(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"entries": toViews(entries)})
}

// listSessions returns every persisted session.
func (h *handlers) listSessions(c *fiber.Ctx) error {
	sessions, err := h.sessions.Sessions(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionView{
			ID:          s.ID,
			StartedAt:   s.StartedAt.UTC().Format(time.RFC3339),
			Transitions: s.Transitions,
		})
	}

	return c.JSON(fiber.Map{"sessions": out})
}

// sessionTransitions returns the persisted trail of one session.
func (h *handlers) sessionTransitions(c *fiber.Ctx) error {
	entries, err := h.sessions.List(c.UserContext(), c.Params("id"))
	if errors.Is(err, audit.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"entries": toViews(entries)})
}

// toViews converts transitions for rendering; never nil.
func toViews(entries []safety.Transition) []transitionView {
	out := make([]transitionView, 0, len(entries))
	for _, e := range entries {
		out = append(out, transitionView{
			Timestamp:       e.Timestamp,
			State:           string(e.State),
			TTCAtTransition: e.TTCAtTransition,
			Cause:           string(e.Cause),
		})
	}

	return out
}

// errorHandler renders errors as {"error": "..."}; unexpected errors are not echoed.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		logger.ErrorKV(c.UserContext(), "Status API request failed", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}

package audit

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/oshokin/lsep/internal/domain/safety"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is a fixed-width RFC 3339 layout, so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository stores transitions in a SQLite database.
type SQLiteRepository struct {
	// db is the underlying connection pool, limited to one connection.
	db *sql.DB
	// now supplies recorded_at and session start times.
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and migrates it to the
// latest schema. Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err = migrateUp(db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// migrateUp applies all pending embedded migrations.
func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	// The migrate instance is not closed: closing it would close db.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	return nil
}

// Close releases the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// StartSession registers a new session and returns its ID.
func (r *SQLiteRepository) StartSession(ctx context.Context) (string, error) {
	id := uuid.NewString()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_at) VALUES (?, ?)`,
		id, r.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	return id, nil
}

// Append stores entries in order inside one transaction.
func (r *SQLiteRepository) Append(ctx context.Context, sessionID string, entries ...safety.Transition) error {
	if sessionID == "" {
		return errSessionRequired
	}

	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if err = sessionExists(ctx, tx, sessionID); err != nil {
		return err
	}

	recordedAt := r.now().UTC().Format(timeLayout)

	for _, e := range entries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transitions (entry_id, session_id, timestamp, state, ttc_at_transition, cause, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), sessionID, e.Timestamp, string(e.State), e.TTCAtTransition, string(e.Cause), recordedAt,
		)
		if err != nil {
			return fmt.Errorf("insert transition: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// List returns the session's transitions in insertion order.
func (r *SQLiteRepository) List(ctx context.Context, sessionID string) ([]safety.Transition, error) {
	if sessionID == "" {
		return nil, errSessionRequired
	}

	if err := sessionExists(ctx, r.db, sessionID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT timestamp, state, ttc_at_transition, cause
		 FROM transitions WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []safety.Transition

	for rows.Next() {
		var (
			tr           safety.Transition
			state, cause string
		)

		if err = rows.Scan(&tr.Timestamp, &state, &tr.TTCAtTransition, &cause); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}

		if tr.State, err = safety.ParseState(state); err != nil {
			return nil, fmt.Errorf("decode transition: %w", err)
		}

		tr.Cause = safety.Cause(cause)
		out = append(out, tr)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}

	return out, nil
}

// Sessions lists all sessions, oldest first.
func (r *SQLiteRepository) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.session_id, s.started_at, COUNT(t.id)
		 FROM sessions s LEFT JOIN transitions t ON t.session_id = s.session_id
		 GROUP BY s.session_id, s.started_at
		 ORDER BY s.started_at ASC, s.rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session

	for rows.Next() {
		var (
			s         Session
			startedAt string
		)

		if err = rows.Scan(&s.ID, &startedAt, &s.Transitions); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		if s.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}

		out = append(out, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return out, nil
}

// sessionExists returns ErrSessionNotFound unless sessionID was started.
func sessionExists(ctx context.Context, q queryRower, sessionID string) error {
	var count int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&count); err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}

	if count == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	return nil
}

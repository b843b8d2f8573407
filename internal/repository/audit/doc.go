// Package audit persists the engine's transition trail.
//
// The SQLiteRepository stores transitions append-only, grouped by a session
// (one server run), with its schema managed by embedded migrations. Export
// writes a trail as JSON for external collaborators.
package audit

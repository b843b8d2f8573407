// Package server runs the lsep decision server.
//
// One engine instance is owned by a single worker goroutine; gRPC calls,
// serial ingest and status queries are queued to it, so readings are
// evaluated strictly one at a time. New transitions are appended to the
// audit store under the run's session.
package server

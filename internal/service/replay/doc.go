// Package replay runs recorded readings through a fresh engine and
// summarizes the outcome.
package replay

package safety

import "errors"

// ErrOutOfOrder is returned by serialized front-ends when a reading is older
// than the last one they accepted.
var ErrOutOfOrder = errors.New("reading is older than the last accepted one")

// Snapshot is the externally visible engine state.
type Snapshot struct {
	State              State
	LastTransitionTime float64
}

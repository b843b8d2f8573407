// Package probe implements the lsep-probe operations: send one reading to a
// decision server, watch its state, and dump its audit trail.
package probe

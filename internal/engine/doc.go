// Package engine implements the physics-based safety decision logic.
//
// A reading flows through a fixed pipeline: confidence gate, TTC
// computation, THREAT bypass, proximity floor, threshold table, hysteresis
// filter and finally the transition recorder, which is the only code that
// mutates an Engine.
//
// The engine is synchronous and performs no I/O, logging or locking. Callers
// must deliver readings one at a time with non-decreasing timestamps; a
// deployment with several producers serializes them before they reach it.
package engine

// Package safety contains core domain types for the safety decision logic.
//
// It defines State (the closed set of behavioural states and the severity
// ladder over six of them), SensorReading (one fused proximity observation)
// and Transition (one entry of the audit trail). No type in this package
// carries any attribute of the detected human beyond distance and motion.
package safety

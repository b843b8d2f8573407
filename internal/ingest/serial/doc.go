// Package serial feeds fused readings from a serial port into the decision
// service.
//
// The device writes one JSON object per line, using the same field names as
// the gRPC DetermineState request:
//
//	{"distance_m": 4.2, "closing_velocity_ms": 1.1, "confidence": 0.93, "timestamp": 12.5}
//
// The timestamp is optional; lines without one are stamped on arrival.
package serial

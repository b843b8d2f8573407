// Package safety implements the gRPC transport for the safety decision engine.
//
// The service is declared by hand on top of the well-known Struct and Empty
// messages, so no generated code is needed. The package adapts those messages
// to domain types and exposes a server that calls into a provided
// business-service interface, plus a thin client stub.
package safety

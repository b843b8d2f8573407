// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the decision server with
// per-call timeouts and decoded responses.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

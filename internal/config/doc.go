// Package config defines the settings shared by the lsep binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Settings cover the gRPC and HTTP listen addresses, the audit database,
// the optional serial ingest port, logging and the engine tuning.
package config

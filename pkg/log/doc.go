// Package log provides structured protocol logging for Corvo clients.
//
// This package defines the Logger interface and Event types for capturing
// transport-level events: raw frames, TLS handshake progress, connection
// state changes, control messages and errors. It is separate from
// operational logging (slog) - protocol capture provides a complete
// machine-readable event trace for debugging broker connections.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/corvo/client.clog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/corvo/client.clog"),
//	)
//
// # File Format
//
// Log files use CBOR encoding with .clog extension; events carry integer
// keys for compactness.
package log

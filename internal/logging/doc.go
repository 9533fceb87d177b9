// Package logging builds slog loggers for the affect daemon and CLI.
//
// The package wraps log/slog with configuration-driven construction
// (console or JSON output, optional log files) and provides the
// standardized attribute helpers and context plumbing used across the
// pipeline so session and window identifiers appear consistently in
// every record.
package logging

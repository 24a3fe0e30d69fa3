// Package logging provides slog-based structured logging for shelfsync.
//
// Console output is a compact single-line format intended for interactive
// use; JSON output is intended for log shipping. Attribute helpers and
// standardized field keys keep component logs consistent across the daemon,
// worker, and CLI.
package logging

// Package logging assembles structured slog loggers and formatting helpers used
// across the pipe CLI, the relay daemon, and the transports.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so exchange code can tag log
// lines with pipe names, session IDs, and push IDs. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging

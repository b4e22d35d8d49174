// Package config loads, normalizes, and validates thepipe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// THEPIPE_RUNTIME_DIR and THEPIPE_LOG_LEVEL. The Config type centralizes the
// knobs the CLI, the relay daemon, and the transports need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

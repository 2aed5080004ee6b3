// Package config loads, normalizes, and validates postgate configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// POSTGATE_API_BIND. The Config type centralizes every knob the daemon, the
// interactive reviewer, and the CLI need so the queue database location and
// expiry timings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

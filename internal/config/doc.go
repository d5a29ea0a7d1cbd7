// Package config loads, normalizes, and validates subforge configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment overrides such as SUBFORGE_CONFIG and
// SUBFORGE_LOG_LEVEL. The Config type holds the machine-level settings: where
// builds work and log, which media tools to run, and how builds behave.
// Per-show settings live in project files, not here.
package config

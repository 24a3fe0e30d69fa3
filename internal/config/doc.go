// Package config loads, normalizes, and validates shelfsync configuration
// from TOML. All path fields in a loaded Config are absolute.
package config

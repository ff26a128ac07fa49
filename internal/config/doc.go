// Package config loads, normalizes, and validates bliss-analyser settings.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, overlays command-line values and .env
// fallbacks, and reports clear validation errors. Values set in the config
// file take precedence over command-line flags; flags only fill keys the file
// leaves out.
//
// Always obtain settings through this package so downstream code receives
// absolute paths and canonical log formats.
package config

// Package config loads, normalizes, and validates bidsify configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BIDSIFY_TABLES. The Config type centralizes every knob the CLI needs: where
// the correction tables live, where the catalog database is kept, which output
// types naming templates advertise, and how logs are shaped.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

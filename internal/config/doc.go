// Package config loads, normalizes, and validates reelsmith configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REELSMITH_MEDIA_URL and REELSMITH_MEDIA_TOKEN. The Config type centralizes
// every knob the daemon and CLI need: workspace and data directories, the
// media store endpoint, engine binaries, encoding defaults, and worker sizing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

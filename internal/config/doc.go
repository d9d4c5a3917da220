// Package config loads, normalizes, and validates oktabot configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for API credentials such as
// OPENROUTER_API_KEY and the YOUTUBE_* OAuth values. The Config type holds
// every knob the producer, the built-in stage programs, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config

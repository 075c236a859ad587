// Package config loads, normalizes, and validates promptflow configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// PROMPTFLOW_LOG_LEVEL and PROMPTFLOW_TOKENIZER. The Config type centralizes
// every knob the orchestrator and CLI need: per-stage timeouts, retry
// backoff, batch grouping, quality thresholds, and generation settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

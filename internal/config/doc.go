// Package config loads, normalizes, and validates procscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a working-directory .env file, and
// honours environment fallbacks such as GEMINI_API_KEY. The Config type
// centralizes every knob the CLI and API server need so the pipeline receives
// one explicit, read-only value instead of consulting process state.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

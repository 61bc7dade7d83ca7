// Package config loads, normalizes, and validates spatialrip configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files strictly (unknown keys are an error), and honours
// SPATIALRIP_* environment overrides for tool paths, optionally sourced from a
// .env file. The Config value is passed explicitly to every component; nothing
// in the pipeline reads global settings.
package config

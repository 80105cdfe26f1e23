// Package config loads, normalizes, and validates publisher configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and describes which hooks drive collection,
// publishing, and post-phase decisions. Plugin lists can be overridden per
// tracking context through [[environments]] entries.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

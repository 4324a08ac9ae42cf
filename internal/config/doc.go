// Package config loads, normalizes, and validates bookforge configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks for credentials
// (OPENROUTER_API_KEY, GEMINI_API_KEY, BOOKFORGE_STORAGE_ACCESS_KEY,
// BOOKFORGE_STORAGE_SECRET_KEY). Always obtain settings through this package so
// downstream code receives sanitized paths and clear validation errors.
package config

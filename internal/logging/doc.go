// Package logging assembles the slog loggers used across bookforge.
//
// It owns the console ("pretty") and JSON handlers, level and output
// plumbing, the fan-out handler that mirrors a run's records into its own
// log file, and context helpers that tag lines with run, order, stage and
// spread identifiers. NewNop gives tests and optional wiring a logger that
// cannot fail.
package logging

// Package preflight provides readiness checks for the directories and external
// services bookforge depends on.
//
// The producer runs CheckDirectories before each order so a run never starts
// against an unwritable work or output directory. The CLI "config validate
// --online" command runs RunAll, which adds network checks for the LLM API,
// the storage bucket, and the ntfy topic.
//
// Each network check is gated by its config section; disabled features are
// skipped.
package preflight

// Package notifications delivers production run alerts.
//
// The default implementation publishes to the ntfy topic configured under
// [notifications] and degrades to a no-op when no topic is set. The pipeline
// calls the Service when a run starts, finishes, or fails; delivery errors are
// logged by the caller and never fail a run.
package notifications

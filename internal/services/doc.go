// Package services defines shared utilities consumed by the workflow stages,
// the render loop, and the external generation integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, order IDs, stage names, spread
//     numbers, and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     prerequisite, transient, permanent, compositing, or packaging errors.
//   - Retrier, the bounded fixed-backoff retry loop applied to every
//     generation call. Only transient failures are retried.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services

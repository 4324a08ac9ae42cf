// Package pipeline runs one order end to end: the six generation stages, print
// layout, document assembly, packaging, and the optional archive upload.
//
// A Producer owns the long-lived collaborators (generator, catalog, run store,
// uploader, layout engine). Produce builds a fresh session, orchestrator and
// render loop per order, tees its logs into a per-run JSON file, mirrors every
// workflow log entry into the run store, and records the archive location and
// checksum once the package is written.
package pipeline

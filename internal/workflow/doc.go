// Package workflow sequences the content-generation stages of one production
// run.
//
// The Orchestrator walks six dependent stages (skeleton, narrative,
// visual_plan, prompts, quality, raster). Each stage checks that the
// artifacts it depends on exist, drops its own and later artifacts, calls the
// generation collaborator under the bounded retry policy, and records the
// outcome on the session's workflow log. Callers navigate with Start, Advance,
// Retreat and Retry, or run every stage with RunAll.
package workflow

// Package runstore persists production runs and their workflow logs in SQLite.
//
// A run row tracks one order through the pipeline: its current stage, overall
// status, the failure message when it stops, and the packaged archive (local
// path, checksum, optional remote object key). Workflow logs are stored beside
// it in append order so `bookforge runs show` can replay what happened.
//
// Schema changes bump schemaVersion in schema.go; existing databases must be
// deleted to adopt a new schema.
package runstore

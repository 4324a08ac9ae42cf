// Package main hosts the bookforge CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once per invocation, opens the
// run store on demand, and hands real work to internal/pipeline. Commands
// print go-pretty tables by default and JSON with --json.
package main

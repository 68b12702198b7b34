// Package main hosts the Vectra CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP calls
// against the daemon: job submission, status polling, export downloads,
// segment edits, batch coordination, and configuration scaffolding. It
// centralizes configuration resolution, API client construction, and output
// rendering so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main

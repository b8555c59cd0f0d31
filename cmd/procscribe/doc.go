// Package main hosts the procscribe CLI.
//
// The Cobra command tree runs a single recording through the pipeline
// (process), exposes the same pipeline over HTTP (serve), lists recorded runs
// (history), verifies the environment (check), and scaffolds configuration
// (config). Configuration resolution and logger construction live in the
// command context so subcommands only wire internal packages together.
package main

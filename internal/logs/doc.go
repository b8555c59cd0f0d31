// Package logs reads the procscribe log file for `procscribe logs`.
//
// Tail returns the last N lines (optionally only those tagged with one run ID)
// and an offset from which a follow loop can pick up newly appended records.
// Reads are line-bounded so memory stays flat on large logs.
package logs

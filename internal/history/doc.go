// Package history records the outcome of every pipeline run in a SQLite
// database so the CLI and HTTP API can list and inspect past runs.
//
// The store applies embedded migrations on open and is safe for concurrent
// use through database/sql.
package history

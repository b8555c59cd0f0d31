// Package preflight provides readiness checks for the remote model service,
// external binaries and the directories procscribe writes to.
//
// "procscribe check" prints every result, and "procscribe serve" refuses to
// start when a required check fails. Checks for disabled features are skipped.
package preflight

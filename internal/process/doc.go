// Package process defines the structured process description extracted from a
// screen recording and shared by the document and diagram renderers.
//
// A Description is decoded once from the model response and treated as
// read-only afterwards, so both renderers may consume it concurrently.
package process

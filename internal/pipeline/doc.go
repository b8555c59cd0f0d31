// Package pipeline turns one recording into a process document and, when
// enabled, a draw.io diagram.
//
// A run moves through validating, extracting, parsing, rendering_document and
// rendering_diagram. Failures before rendering are reported through
// Result.Failure with no error return. A document render failure is returned
// as an error. A diagram failure only degrades the result. Every run gets a UUID that is carried in the context and logged on
// each stage transition.
package pipeline

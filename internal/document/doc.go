// Package document renders a process description as a Word (DOCX) file.
//
// Rendering happens in two steps. Build lays the description out as an
// in-memory Document of headings, paragraphs and tables; a final pass gives
// every table cell uniform single borders. Write then serializes the model as
// WordprocessingML parts inside a zip container. Renderer ties both together
// and writes <stem>.docx atomically into the output directory.
//
// Layout: "Process Name: X" as Heading 1, the short description, an
// applications table, one table per step group with a shaded, merged header
// row, and optional exceptions and clarifications sections. Body text uses
// Calibri 11pt.
package document

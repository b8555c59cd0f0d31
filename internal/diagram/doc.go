// Package diagram asks a chat model to draw the process steps as a draw.io
// flowchart and writes the returned markup to <stem>.drawio.
//
// The steps are sent as indented JSON with double quotes in labels replaced
// by single quotes, so the generated mxCell value attributes stay well formed.
// The model's answer must contain a fenced xml block; anything else yields
// ErrNoDiagram. The markup is written as returned. Inspect only counts
// vertices and edges for logging.
package diagram

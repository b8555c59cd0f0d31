// Package payload locates and decodes the JSON process description embedded in
// a free-form model response.
//
// Parse prefers a fenced ```json block. Without one it scans the text for
// balanced, string-aware {...} spans, trying each opening brace in order and
// keeping the first span that is valid JSON. Prose before or after the payload,
// stray braces and brace characters inside JSON strings are tolerated.
package payload

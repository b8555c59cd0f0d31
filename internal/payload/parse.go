package payload

import (
	"encoding/json"
	"errors"

	"procscribe/internal/process"
)

// schemaKeys are the top-level keys of a process description. A candidate
// carrying any of them is preferred over other valid JSON objects.
var schemaKeys = []string{
	"process_name",
	"short_process_description",
	"list_of_applications",
	"list_of_steps",
	"exceptions",
	"clarifications",
}

var (
	errTruncated    = errors.New("json object is not closed; the response looks truncated")
	errNoSchemaKeys = errors.New("no json object carries process description keys")
)

// Parse extracts the process description from a raw model response.
func Parse(raw string) (process.Description, error) {
	if body, ok := fencedBlock(raw); ok && json.Valid([]byte(body)) {
		return decode(body)
	}

	spans := balancedSpans(raw)
	if len(spans) == 0 {
		return process.Description{}, &NoPayloadFoundError{Snippet: snippet(raw)}
	}

	var firstInvalid error
	for _, span := range spans {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(span), &fields); err != nil {
			if firstInvalid == nil {
				firstInvalid = &MalformedPayloadError{Snippet: snippet(span), Err: err}
			}
			continue
		}
		if hasSchemaKey(fields) {
			return decode(span)
		}
	}
	if firstInvalid != nil {
		return process.Description{}, firstInvalid
	}
	// Only nested objects decoded, e.g. a reply cut off before the outer
	// object closed.
	reason := errNoSchemaKeys
	if hasUnclosedBrace(raw) {
		reason = errTruncated
	}
	return process.Description{}, &MalformedPayloadError{Snippet: snippet(raw), Err: reason}
}

func hasSchemaKey(fields map[string]json.RawMessage) bool {
	for _, key := range schemaKeys {
		if _, ok := fields[key]; ok {
			return true
		}
	}
	return false
}

func decode(body string) (process.Description, error) {
	var desc process.Description
	if err := json.Unmarshal([]byte(body), &desc); err != nil {
		return process.Description{}, &MalformedPayloadError{Snippet: snippet(body), Err: err}
	}
	return desc, nil
}

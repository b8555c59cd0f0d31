package payload

import (
	"errors"
	"fmt"

	"procscribe/internal/services"
)

var (
	// ErrNoPayload marks responses that contain no balanced JSON object.
	ErrNoPayload = errors.New("no json payload found")
	// ErrMalformedPayload marks responses whose JSON candidates do not decode.
	ErrMalformedPayload = errors.New("malformed json payload")
)

// NoPayloadFoundError reports a response without any balanced {...} span.
type NoPayloadFoundError struct {
	Snippet string
}

func (e *NoPayloadFoundError) Error() string {
	return fmt.Sprintf("%v (response snippet: %s)", ErrNoPayload, e.Snippet)
}

func (e *NoPayloadFoundError) Unwrap() []error {
	return []error{ErrNoPayload, services.ErrInvalidResponse}
}

// MalformedPayloadError reports a candidate span that failed to decode.
type MalformedPayloadError struct {
	Snippet string
	Err     error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("%v: %v (payload snippet: %s)", ErrMalformedPayload, e.Err, e.Snippet)
}

func (e *MalformedPayloadError) Unwrap() []error {
	return []error{ErrMalformedPayload, services.ErrInvalidResponse, e.Err}
}

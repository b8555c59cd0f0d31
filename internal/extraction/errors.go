package extraction

import (
	"context"
	"errors"
	"fmt"

	"procscribe/internal/services"
)

// InvalidInputError reports a recording rejected before any remote call.
type InvalidInputError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input %q: %s", e.Path, e.Reason)
}

func (e *InvalidInputError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrValidation}
	}
	return []error{services.ErrValidation, e.Err}
}

// ExtractionError reports a failed upload, poll or generation call.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	return []error{e.marker(), e.Err}
}

// Timeout reports whether the failure was a deadline rather than a remote error.
func (e *ExtractionError) Timeout() bool {
	return errors.Is(e.Err, services.ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded)
}

func (e *ExtractionError) marker() error {
	if e.Timeout() {
		return services.ErrTimeout
	}
	return services.ErrExternalTool
}

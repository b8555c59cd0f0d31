package document

import (
	"fmt"

	"procscribe/internal/services"
)

// RenderError reports a document that could not be produced.
type RenderError struct {
	Stem string
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("render document %s: %v", e.Path, e.Err)
	case e.Stem != "":
		return fmt.Sprintf("render document %q: %v", e.Stem, e.Err)
	default:
		return fmt.Sprintf("render document: %v", e.Err)
	}
}

func (e *RenderError) Unwrap() []error {
	return []error{services.ErrRender, e.Err}
}

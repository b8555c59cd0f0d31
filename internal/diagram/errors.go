package diagram

import (
	"errors"
	"fmt"

	"procscribe/internal/services"
)

// ErrNoDiagram indicates a reply without a fenced diagram block.
var ErrNoDiagram = fmt.Errorf("%w: no fenced diagram block in reply", services.ErrRender)

// RenderError reports a diagram that could not be produced.
type RenderError struct {
	Op   string
	Stem string
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	target := e.Stem
	if e.Path != "" {
		target = e.Path
	}
	if target == "" {
		return fmt.Sprintf("render diagram: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("render diagram %s: %s: %v", target, e.Op, e.Err)
}

func (e *RenderError) Unwrap() []error {
	if errors.Is(e.Err, services.ErrRender) {
		return []error{e.Err}
	}
	return []error{services.ErrRender, e.Err}
}

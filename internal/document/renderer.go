package document

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"procscribe/internal/fileutil"
	"procscribe/internal/logging"
	"procscribe/internal/process"
)

// Extension is appended to the file stem of every rendered document.
const Extension = ".docx"

// Renderer writes process descriptions as DOCX files.
type Renderer struct {
	outputDir string
	now       func() time.Time
	logger    *slog.Logger
}

// Option customizes the renderer.
type Option func(*Renderer)

// WithLogger sets the renderer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the timestamp source used for document properties.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRenderer constructs a renderer writing into outputDir.
func NewRenderer(outputDir string, opts ...Option) *Renderer {
	r := &Renderer{
		outputDir: outputDir,
		now:       time.Now,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the destination for a given stem.
func (r *Renderer) Path(stem string) string {
	return filepath.Join(r.outputDir, stem+Extension)
}

// Render writes desc to {output_dir}/{stem}.docx and returns the path.
func (r *Renderer) Render(ctx context.Context, desc process.Description) (string, error) {
	stem, err := process.FileStem(desc.ProcessName)
	if err != nil {
		return "", &RenderError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &RenderError{Stem: stem, Err: err}
	}

	doc := Build(desc)
	path := r.Path(stem)
	err = fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Write(w, doc, r.now())
	})
	if err != nil {
		return "", &RenderError{Stem: stem, Path: path, Err: err}
	}

	tables := doc.Tables()
	logging.WithContext(ctx, r.logger).Info("document written",
		logging.String("path", path),
		logging.Int("tables", len(tables)),
		logging.Int("step_groups", len(desc.Steps)),
		logging.Int("sub_steps", desc.SubStepCount()),
	)
	return path, nil
}

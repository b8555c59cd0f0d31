package diagram

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"procscribe/internal/fileutil"
	"procscribe/internal/logging"
	"procscribe/internal/process"
)

// Extension is appended to the file stem of every rendered diagram.
const Extension = ".drawio"

// Instruction is the system instruction seeding every diagram session.
//
//go:embed instruction.txt
var Instruction string

// Renderer turns process steps into a draw.io file via a ChatModel.
type Renderer struct {
	model       ChatModel
	outputDir   string
	instruction string
	logger      *slog.Logger
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

// WithInstruction overrides the system instruction.
func WithInstruction(instruction string) Option {
	return func(r *Renderer) {
		if strings.TrimSpace(instruction) != "" {
			r.instruction = instruction
		}
	}
}

// NewRenderer constructs a renderer writing into outputDir.
func NewRenderer(model ChatModel, outputDir string, opts ...Option) *Renderer {
	r := &Renderer{
		model:       model,
		outputDir:   outputDir,
		instruction: Instruction,
		logger:      logging.NewNop(),
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

// Render asks the model for a diagram of desc.Steps and writes it to
// {output_dir}/{stem}.drawio.
func (r *Renderer) Render(ctx context.Context, desc process.Description) (string, error) {
	logger := logging.WithContext(ctx, r.logger)

	stem, err := process.FileStem(desc.ProcessName)
	if err != nil {
		return "", &RenderError{Op: "stem", Err: err}
	}
	if r.model == nil {
		return "", &RenderError{Op: "generate", Stem: stem, Err: errors.New("no chat model configured")}
	}

	message, err := StepsMessage(desc.Steps)
	if err != nil {
		return "", &RenderError{Op: "encode steps", Stem: stem, Err: err}
	}
	reply, err := r.model.Chat(ctx, r.instruction, message)
	if err != nil {
		return "", &RenderError{Op: "generate", Stem: stem, Err: err}
	}
	markup, err := ExtractMarkup(reply)
	if err != nil {
		return "", &RenderError{Op: "extract", Stem: stem, Err: err}
	}

	stats, inspectErr := Inspect(markup)
	if inspectErr != nil {
		logging.WarnWithContext(logger, "diagram markup does not parse", "diagram_markup_invalid",
			logging.Error(inspectErr),
			logging.String(logging.FieldErrorHint, "open the file in draw.io and repair the markup by hand"),
			logging.String(logging.FieldImpact, "the file is written but may not import"),
		)
	}

	path := r.Path(stem)
	err = fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, werr := io.WriteString(w, markup)
		return werr
	})
	if err != nil {
		return "", &RenderError{Op: "write", Stem: stem, Path: path, Err: err}
	}

	logger.Info("diagram written",
		logging.String("path", path),
		logging.Int("vertices", stats.Vertices),
		logging.Int("edges", stats.Edges),
		logging.Int("sub_steps", desc.SubStepCount()),
	)
	return path, nil
}

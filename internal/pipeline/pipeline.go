package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"procscribe/internal/extraction"
	"procscribe/internal/history"
	"procscribe/internal/logging"
	"procscribe/internal/payload"
	"procscribe/internal/process"
	"procscribe/internal/services"
)

const (
	lockRetryDelay = 250 * time.Millisecond
	// lockDirName holds per-stem lock files beneath the output directory.
	lockDirName = ".procscribe"
)

// Extractor submits a recording and returns the model's raw answer.
type Extractor interface {
	Submit(ctx context.Context, videoPath string) (string, error)
}

// Renderer writes one output for a description and returns its path.
type Renderer interface {
	Render(ctx context.Context, desc process.Description) (string, error)
}

// Recorder persists run outcomes.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Pipeline runs recordings through extraction, parsing and rendering.
type Pipeline struct {
	extractor  Extractor
	document   Renderer
	diagram    Renderer
	outputDir  string
	concurrent bool
	recorder   Recorder
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithDiagram enables diagram rendering.
func WithDiagram(renderer Renderer) Option {
	return func(p *Pipeline) {
		p.diagram = renderer
	}
}

// WithConcurrentRender toggles running both renderers at once.
func WithConcurrentRender(enabled bool) Option {
	return func(p *Pipeline) {
		p.concurrent = enabled
	}
}

// WithRecorder records every run outcome.
func WithRecorder(recorder Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = recorder
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs a pipeline. outputDir holds the per-stem lock files.
func New(extractor Extractor, document Renderer, outputDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:  extractor,
		document:   document,
		outputDir:  outputDir,
		concurrent: true,
		logger:     logging.NewNop(),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs videoPath through every stage.
func (p *Pipeline) Process(ctx context.Context, videoPath string) (Result, error) {
	if p.extractor == nil || p.document == nil {
		return Result{}, errors.New("pipeline requires an extractor and a document renderer")
	}
	runID := p.newID()
	ctx = services.WithRunID(ctx, runID)
	result := Result{RunID: runID, VideoPath: videoPath, StartedAt: p.now()}
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run started", logging.String("video", videoPath))

	err := p.run(ctx, videoPath, &result)
	result.FinishedAt = p.now()
	p.record(ctx, result, err)

	if err == nil && result.Failure == nil {
		logger.Info("run finished",
			logging.String(logging.FieldStage, string(StageDone)),
			logging.String("document", result.DocumentPath),
			logging.String("diagram", result.DiagramPath),
			logging.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)),
		)
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, videoPath string, result *Result) error {
	_, logger := p.enter(ctx, StageValidating)
	if _, err := extraction.ValidateVideo(videoPath); err != nil {
		p.fail(logger, result, StageValidating, err)
		return nil
	}
	p.complete(logger)

	stageCtx, logger := p.enter(ctx, StageExtracting)
	started := p.now()
	raw, err := p.extractor.Submit(stageCtx, videoPath)
	if err != nil {
		stage := StageExtracting
		if errors.Is(err, services.ErrValidation) {
			stage = StageValidating
		}
		p.fail(logger, result, stage, err)
		return nil
	}
	p.complete(logger,
		logging.Int("response_chars", len(raw)),
		logging.Duration("elapsed", p.now().Sub(started).Round(time.Millisecond)),
	)

	_, logger = p.enter(ctx, StageParsing)
	desc, err := payload.Parse(raw)
	if err != nil {
		p.fail(logger, result, StageParsing, err)
		return nil
	}
	result.Process = &desc
	result.Warnings = process.CheckNumbering(desc)
	for _, warning := range result.Warnings {
		logging.WarnWithContext(logger, "step numbering irregular", "numbering_warning",
			logging.String("detail", warning),
			logging.String(logging.FieldImpact, "outputs keep the numbering as extracted"),
		)
	}
	p.complete(logger,
		logging.String("process_name", desc.ProcessName),
		logging.Int("applications", len(desc.Applications)),
		logging.Int("step_groups", len(desc.Steps)),
		logging.Int("sub_steps", desc.SubStepCount()),
	)

	unlock, err := p.lockOutputs(ctx, desc)
	if err != nil {
		result.FailedStage = StageRenderingDocument
		return err
	}
	defer unlock()
	return p.render(ctx, desc, result)
}

func (p *Pipeline) render(ctx context.Context, desc process.Description, result *Result) error {
	var (
		docPath, diagramPath string
		docErr, diagramErr   error
	)
	renderDocument := func() {
		stageCtx, logger := p.enter(ctx, StageRenderingDocument)
		docPath, docErr = p.document.Render(stageCtx, desc)
		if docErr == nil {
			p.complete(logger, logging.String("path", docPath))
		}
	}
	renderDiagram := func() {
		stageCtx, logger := p.enter(ctx, StageRenderingDiagram)
		diagramPath, diagramErr = p.diagram.Render(stageCtx, desc)
		if diagramErr == nil {
			p.complete(logger, logging.String("path", diagramPath))
		}
	}

	switch {
	case p.diagram == nil:
		renderDocument()
	case p.concurrent:
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			renderDocument()
		}()
		go func() {
			defer wg.Done()
			renderDiagram()
		}()
		wg.Wait()
	default:
		renderDocument()
		if docErr == nil {
			renderDiagram()
		}
	}

	if docErr != nil {
		logger := logging.WithContext(services.WithStage(ctx, string(StageRenderingDocument)), p.logger)
		logging.ErrorWithContext(logger, "document rendering failed", logging.EventStageFailed,
			logging.Error(docErr),
			logging.String(logging.FieldErrorHint, "check that the output directory is writable"),
		)
		if diagramErr == nil && diagramPath != "" {
			if err := os.Remove(diagramPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logging.WarnWithContext(logger, "orphaned diagram not removed", logging.EventStageFailed,
					logging.String("path", diagramPath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "delete the .drawio file by hand"),
				)
			}
		}
		result.FailedStage = StageRenderingDocument
		return docErr
	}
	result.DocumentPath = docPath

	if p.diagram != nil {
		if diagramErr != nil {
			result.DiagramErr = diagramErr
			logger := logging.WithContext(services.WithStage(ctx, string(StageRenderingDiagram)), p.logger)
			logging.WarnWithContext(logger, "diagram unavailable, document only", logging.EventDiagramDegraded,
				logging.Error(diagramErr),
				logging.String(logging.FieldErrorHint, "rerun the recording to retry the diagram"),
				logging.String(logging.FieldImpact, "no .drawio file for this run"),
			)
		} else {
			result.DiagramPath = diagramPath
		}
	}
	return nil
}

// lockOutputs serializes runs that write the same stem.
func (p *Pipeline) lockOutputs(ctx context.Context, desc process.Description) (func(), error) {
	stem, err := process.FileStem(desc.ProcessName)
	if err != nil || p.outputDir == "" {
		// The document renderer reports the bad stem.
		return func() {}, nil
	}
	lockDir := filepath.Join(p.outputDir, lockDirName)
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, string(StageRenderingDocument), "lock outputs", "create lock directory", err)
	}
	lockPath := filepath.Join(lockDir, stem+".lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock outputs %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock outputs %s: not acquired", lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release output lock", logging.String("lock", lockPath), logging.Error(err))
		}
	}, nil
}

func (p *Pipeline) enter(ctx context.Context, stage Stage) (context.Context, *slog.Logger) {
	stageCtx := services.WithStage(ctx, string(stage))
	logger := logging.WithContext(stageCtx, p.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, logging.EventStageStart))
	return stageCtx, logger
}

func (p *Pipeline) complete(logger *slog.Logger, attrs ...logging.Attr) {
	attrs = append([]logging.Attr{logging.String(logging.FieldEventType, logging.EventStageComplete)}, attrs...)
	logger.Info("stage completed", logging.Args(attrs...)...)
}

func (p *Pipeline) fail(logger *slog.Logger, result *Result, stage Stage, err error) {
	result.Failure = err
	result.FailedStage = stage
	logging.ErrorWithContext(logger, "stage failed", logging.EventStageFailed,
		logging.String("failed_stage", string(stage)),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
}

func (p *Pipeline) record(ctx context.Context, result Result, err error) {
	if p.recorder == nil {
		return
	}
	// Record even when the caller's context was cancelled.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if recErr := p.recorder.Record(recordCtx, result.Run(err)); recErr != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "failed to record run", "history_write_failed",
			logging.Error(recErr),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return "use an existing .mp4, .avi, .mov or .mkv file"
	case errors.Is(err, services.ErrTimeout):
		return "the service took too long; retry or raise extraction.poll_timeout_seconds"
	case errors.Is(err, payload.ErrNoPayload), errors.Is(err, payload.ErrMalformedPayload):
		return "the model answer was not usable JSON; retry the recording"
	case errors.Is(err, services.ErrExternalTool):
		return "check the Gemini API key and network access with procscribe check"
	default:
		return "check logs for details"
	}
}

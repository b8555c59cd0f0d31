package pipeline

import (
	"time"

	"procscribe/internal/history"
	"procscribe/internal/process"
	"procscribe/internal/services"
)

// Stage names a pipeline state.
type Stage string

const (
	StageValidating        Stage = "validating"
	StageExtracting        Stage = "extracting"
	StageParsing           Stage = "parsing"
	StageRenderingDocument Stage = "rendering_document"
	StageRenderingDiagram  Stage = "rendering_diagram"
	StageDone              Stage = "done"
)

// Result is the outcome of one run.
//
// Failure and FailedStage are set when the run stopped before rendering.
// DiagramErr is set when the document was written but the diagram was not.
type Result struct {
	RunID        string
	VideoPath    string
	Process      *process.Description
	DocumentPath string
	DiagramPath  string
	DiagramErr   error
	Failure      error
	FailedStage  Stage
	Warnings     []string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Paths returns the output paths, nil for each output not produced.
func (r Result) Paths() (document, diagram *string) {
	if r.DocumentPath != "" {
		p := r.DocumentPath
		document = &p
	}
	if r.DiagramPath != "" {
		p := r.DiagramPath
		diagram = &p
	}
	return document, diagram
}

// Succeeded reports whether a document was produced.
func (r Result) Succeeded() bool {
	return r.DocumentPath != ""
}

// Status classifies the run for the history store.
func (r Result) Status() history.Status {
	switch {
	case r.DocumentPath == "":
		return history.StatusFailed
	case r.DiagramErr != nil:
		return history.StatusDegraded
	default:
		return history.StatusSucceeded
	}
}

// Run converts the result into a history record. err is the error returned
// alongside the result, if any.
func (r Result) Run(err error) history.Run {
	run := history.Run{
		ID:           r.RunID,
		VideoPath:    r.VideoPath,
		Status:       r.Status(),
		FailedStage:  string(r.FailedStage),
		DocumentPath: r.DocumentPath,
		DiagramPath:  r.DiagramPath,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
	if r.Process != nil {
		run.ProcessName = r.Process.ProcessName
	}
	failure := r.Failure
	if failure == nil {
		failure = err
	}
	if failure != nil {
		run.ErrorKind = services.Kind(failure)
		run.ErrorMessage = failure.Error()
	}
	if r.DiagramErr != nil {
		run.DiagramError = r.DiagramErr.Error()
	}
	return run
}

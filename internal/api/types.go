package api

import (
	"net/url"
	"path/filepath"
	"time"

	"procscribe/internal/history"
	"procscribe/internal/pipeline"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stage string `json:"stage,omitempty"`
	RunID string `json:"runId,omitempty"`
}

// HealthResponse answers /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptimeS"`
}

// FileRef points at a downloadable output.
type FileRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ProcessResponse describes a completed run.
type ProcessResponse struct {
	RunID        string   `json:"runId"`
	ProcessName  string   `json:"processName"`
	Document     FileRef  `json:"document"`
	Diagram      *FileRef `json:"diagram,omitempty"`
	DiagramError string   `json:"diagramError,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	DurationMS   int64    `json:"durationMs"`
}

// Run is the transport form of a history record.
type Run struct {
	ID           string   `json:"id"`
	VideoPath    string   `json:"videoPath"`
	ProcessName  string   `json:"processName,omitempty"`
	Status       string   `json:"status"`
	FailedStage  string   `json:"failedStage,omitempty"`
	ErrorKind    string   `json:"errorKind,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	Document     *FileRef `json:"document,omitempty"`
	Diagram      *FileRef `json:"diagram,omitempty"`
	DiagramError string   `json:"diagramError,omitempty"`
	StartedAt    string   `json:"startedAt,omitempty"`
	FinishedAt   string   `json:"finishedAt,omitempty"`
}

// RunsResponse answers /api/runs.
type RunsResponse struct {
	Runs []Run `json:"runs"`
}

// FromRun converts a history record.
func FromRun(run history.Run) Run {
	return Run{
		ID:           run.ID,
		VideoPath:    run.VideoPath,
		ProcessName:  run.ProcessName,
		Status:       string(run.Status),
		FailedStage:  run.FailedStage,
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		Document:     fileRef(run.DocumentPath),
		Diagram:      fileRef(run.DiagramPath),
		DiagramError: run.DiagramError,
		StartedAt:    formatTime(run.StartedAt),
		FinishedAt:   formatTime(run.FinishedAt),
	}
}

// FromResult converts a successful pipeline result.
func FromResult(result pipeline.Result) ProcessResponse {
	resp := ProcessResponse{
		RunID:      result.RunID,
		Warnings:   result.Warnings,
		DurationMS: result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	if result.Process != nil {
		resp.ProcessName = result.Process.ProcessName
	}
	if doc := fileRef(result.DocumentPath); doc != nil {
		resp.Document = *doc
	}
	resp.Diagram = fileRef(result.DiagramPath)
	if result.DiagramErr != nil {
		resp.DiagramError = result.DiagramErr.Error()
	}
	return resp
}

func fileRef(path string) *FileRef {
	if path == "" {
		return nil
	}
	name := filepath.Base(path)
	return &FileRef{Name: name, URL: "/api/files/" + url.PathEscape(name)}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

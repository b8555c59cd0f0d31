package history

import "time"

// Status summarizes how a run ended.
type Status string

const (
	// StatusSucceeded means both outputs were written.
	StatusSucceeded Status = "succeeded"
	// StatusDegraded means the document was written but the diagram was not.
	StatusDegraded Status = "degraded"
	// StatusFailed means no document was produced.
	StatusFailed Status = "failed"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID           string    `json:"id"`
	VideoPath    string    `json:"video_path"`
	ProcessName  string    `json:"process_name,omitempty"`
	Status       Status    `json:"status"`
	FailedStage  string    `json:"failed_stage,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DocumentPath string    `json:"document_path,omitempty"`
	DiagramPath  string    `json:"diagram_path,omitempty"`
	DiagramError string    `json:"diagram_error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

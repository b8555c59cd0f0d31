package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"procscribe/internal/services"
)

// File states reported by the API.
const (
	StateProcessing = "PROCESSING"
	StateActive     = "ACTIVE"
	StateFailed     = "FAILED"
)

// ErrFileFailed indicates the service gave up processing an uploaded file.
var ErrFileFailed = errors.New("file processing failed")

// File describes an uploaded media file.
type File struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	MimeType    string  `json:"mimeType"`
	SizeBytes   string  `json:"sizeBytes"`
	URI         string  `json:"uri"`
	State       string  `json:"state"`
	Error       *Status `json:"error,omitempty"`
}

// Status carries the failure detail of a FAILED file.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type fileEnvelope struct {
	File File `json:"file"`
}

// UploadFile sends a local file using the resumable upload protocol and
// returns the created file resource.
func (c *Client) UploadFile(ctx context.Context, path, mimeType, displayName string) (File, error) {
	const op = "gemini upload"
	if err := c.requireKey(op); err != nil {
		return File{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("%s: stat %s: %w", op, path, err)
	}
	if displayName == "" {
		displayName = filepath.Base(path)
	}

	startBody, err := jsonBody(map[string]any{"file": map[string]string{"display_name": displayName}})
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", op, err)
	}
	startHeader := http.Header{}
	startHeader.Set("X-Goog-Upload-Protocol", "resumable")
	startHeader.Set("X-Goog-Upload-Command", "start")
	startHeader.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(info.Size(), 10))
	startHeader.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	startHeader.Set("Content-Type", "application/json")

	started, err := c.doWithRetry(ctx, request{
		op:     op + " start",
		method: http.MethodPost,
		url:    c.endpoint("upload", apiVersion, "files"),
		header: startHeader,
		body:   startBody,
	})
	if err != nil {
		return File{}, err
	}
	uploadURL := strings.TrimSpace(started.header.Get("X-Goog-Upload-URL"))
	if uploadURL == "" {
		return File{}, fmt.Errorf("%s: response missing upload url", op)
	}

	uploadHeader := http.Header{}
	uploadHeader.Set("X-Goog-Upload-Offset", "0")
	uploadHeader.Set("X-Goog-Upload-Command", "upload, finalize")
	finished, err := c.doWithRetry(ctx, request{
		op:     op + " finalize",
		method: http.MethodPost,
		url:    uploadURL,
		header: uploadHeader,
		body: func() (io.Reader, int64, error) {
			file, err := os.Open(path)
			if err != nil {
				return nil, 0, fmt.Errorf("open %s: %w", path, err)
			}
			return file, info.Size(), nil
		},
	})
	if err != nil {
		return File{}, err
	}

	var envelope fileEnvelope
	if err := json.Unmarshal(finished.body, &envelope); err != nil {
		return File{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if envelope.File.Name == "" {
		return File{}, fmt.Errorf("%s: response missing file name (snippet: %s)", op, summarizeSnippet(string(finished.body)))
	}
	return envelope.File, nil
}

// GetFile fetches the current state of an uploaded file. name has the form
// "files/abc123".
func (c *Client) GetFile(ctx context.Context, name string) (File, error) {
	const op = "gemini get file"
	if err := c.requireKey(op); err != nil {
		return File{}, err
	}
	resp, err := c.doWithRetry(ctx, request{
		op:     op,
		method: http.MethodGet,
		url:    c.endpoint(apiVersion, fileResource(name)),
	})
	if err != nil {
		return File{}, err
	}
	var file File
	if err := json.Unmarshal(resp.body, &file); err != nil {
		return File{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return file, nil
}

// DeleteFile removes an uploaded file.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	const op = "gemini delete file"
	if err := c.requireKey(op); err != nil {
		return err
	}
	_, err := c.doWithRetry(ctx, request{
		op:     op,
		method: http.MethodDelete,
		url:    c.endpoint(apiVersion, fileResource(name)),
	})
	return err
}

// WaitForActive polls the file until it leaves PROCESSING. It returns the
// ACTIVE file, an error wrapping ErrFileFailed when processing failed, or an
// error wrapping services.ErrTimeout once policy.Timeout elapses.
func (c *Client) WaitForActive(ctx context.Context, name string, policy PollPolicy) (File, error) {
	policy = policy.normalized()
	pollCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	interval := policy.Interval
	for {
		file, err := c.GetFile(pollCtx, name)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return File{}, pollTimeout(name, policy)
			}
			return File{}, err
		}
		switch file.State {
		case StateActive:
			return file, nil
		case StateFailed:
			detail := "no detail"
			if file.Error != nil && file.Error.Message != "" {
				detail = file.Error.Message
			}
			return file, fmt.Errorf("gemini poll %s: %w: %s", name, ErrFileFailed, detail)
		}

		if err := c.sleep(pollCtx, interval); err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return File{}, pollTimeout(name, policy)
			}
			return File{}, err
		}
		interval = policy.next(interval)
	}
}

func pollTimeout(name string, policy PollPolicy) error {
	return services.Wrap(services.ErrTimeout, "gemini", "poll file", fmt.Sprintf("%s not active after %s", name, policy.Timeout), nil)
}

func fileResource(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if strings.HasPrefix(name, "files/") {
		return name
	}
	return "files/" + name
}

package extraction

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"strings"
	"time"

	"procscribe/internal/logging"
	"procscribe/internal/media/ffprobe"
)

// Prompt is the business-analyst instruction sent with every recording.
//
//go:embed prompt.txt
var Prompt string

// VideoModel describes a recording and returns the model's raw text.
type VideoModel interface {
	DescribeVideo(ctx context.Context, video Video, prompt string) (string, error)
}

// ProbeFunc inspects a local media file.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Client validates recordings and submits them to a VideoModel.
type Client struct {
	model  VideoModel
	prompt string
	logger *slog.Logger

	probe       ProbeFunc
	probeBinary string
}

// Option customizes the client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProbe enables an ffprobe check before submission.
func WithProbe(binary string, probe ProbeFunc) Option {
	return func(c *Client) {
		c.probeBinary = binary
		c.probe = probe
		if c.probe == nil {
			c.probe = ffprobe.Inspect
		}
	}
}

// WithPrompt overrides the extraction prompt.
func WithPrompt(prompt string) Option {
	return func(c *Client) {
		if strings.TrimSpace(prompt) != "" {
			c.prompt = prompt
		}
	}
}

// NewClient constructs a client around model.
func NewClient(model VideoModel, opts ...Option) *Client {
	c := &Client{
		model:  model,
		prompt: Prompt,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates videoPath and returns the model's raw response text.
// Local problems yield *InvalidInputError before the model is contacted;
// remote failures yield *ExtractionError.
func (c *Client) Submit(ctx context.Context, videoPath string) (string, error) {
	video, err := ValidateVideo(videoPath)
	if err != nil {
		return "", err
	}
	logger := logging.WithContext(ctx, c.logger)

	if c.probe != nil {
		if err := c.checkStreams(ctx, logger, video); err != nil {
			return "", err
		}
	}

	logger.Info("submitting recording",
		logging.String("video", video.Path),
		logging.String("mime_type", video.MimeType),
		logging.Int64("size_bytes", video.SizeBytes),
	)
	started := time.Now()
	text, err := c.model.DescribeVideo(ctx, video, c.prompt)
	if err != nil {
		return "", asExtractionError("describe video", err)
	}
	logger.Info("model response received",
		logging.Int("response_chars", len(text)),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return text, nil
}

func (c *Client) checkStreams(ctx context.Context, logger *slog.Logger, video Video) error {
	result, err := c.probe(ctx, c.probeBinary, video.Path)
	if err != nil {
		return &InvalidInputError{Path: video.Path, Reason: "ffprobe could not read the file", Err: err}
	}
	if result.VideoStreamCount() == 0 {
		return &InvalidInputError{Path: video.Path, Reason: "file contains no video stream"}
	}
	attrs := []logging.Attr{
		logging.Duration("duration", result.Duration()),
		logging.Int("audio_streams", result.AudioStreamCount()),
	}
	if stream, ok := result.PrimaryVideo(); ok {
		attrs = append(attrs, logging.String("codec", stream.CodecName), logging.Int("width", stream.Width), logging.Int("height", stream.Height))
	}
	logger.Debug("recording probed", logging.Args(attrs...)...)
	if result.AudioStreamCount() == 0 {
		logging.WarnWithContext(logger, "recording has no audio track", "probe_no_audio",
			logging.String(logging.FieldImpact, "narration cannot inform the extracted steps"),
			logging.String(logging.FieldErrorHint, "record with microphone enabled for richer descriptions"),
		)
	}
	return nil
}

func asExtractionError(op string, err error) error {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return err
	}
	var invalidErr *InvalidInputError
	if errors.As(err, &invalidErr) {
		return err
	}
	return &ExtractionError{Op: op, Err: err}
}

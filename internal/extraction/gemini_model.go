package extraction

import (
	"context"
	"log/slog"
	"time"

	"procscribe/internal/logging"
	"procscribe/internal/services/gemini"
)

const cleanupTimeout = 30 * time.Second

// GeminiModel describes recordings with the Gemini file and generateContent APIs.
type GeminiModel struct {
	client *gemini.Client
	model  string
	poll   gemini.PollPolicy
	logger *slog.Logger
}

// NewGeminiModel constructs a VideoModel backed by client.
func NewGeminiModel(client *gemini.Client, model string, poll gemini.PollPolicy, logger *slog.Logger) *GeminiModel {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &GeminiModel{client: client, model: model, poll: poll, logger: logger}
}

// DescribeVideo uploads the recording, waits until it is ACTIVE and asks the
// model to describe it with prompt.
func (m *GeminiModel) DescribeVideo(ctx context.Context, video Video, prompt string) (string, error) {
	logger := logging.WithContext(ctx, m.logger)

	uploaded, err := m.client.UploadFile(ctx, video.Path, video.MimeType, video.DisplayName())
	if err != nil {
		return "", &ExtractionError{Op: "upload", Err: err}
	}
	logger.Info("recording uploaded",
		logging.String("file", uploaded.Name),
		logging.String("uri", uploaded.URI),
		logging.String("state", uploaded.State),
	)
	defer m.cleanup(logger, uploaded.Name)

	started := time.Now()
	active, err := m.client.WaitForActive(ctx, uploaded.Name, m.poll)
	if err != nil {
		return "", &ExtractionError{Op: "wait for processing", Err: err}
	}
	logger.Info("recording processed",
		logging.String("file", active.Name),
		logging.Duration("waited", time.Since(started).Round(time.Second)),
	)

	fileData := &gemini.FileData{MimeType: active.MimeType, FileURI: active.URI}
	if fileData.MimeType == "" {
		fileData.MimeType = video.MimeType
	}
	if fileData.FileURI == "" {
		fileData.FileURI = uploaded.URI
	}
	resp, err := m.client.GenerateContent(ctx, m.model, gemini.GenerateRequest{
		Contents: []gemini.Content{{
			Role: "user",
			Parts: []gemini.Part{
				{Text: prompt},
				{FileData: fileData},
			},
		}},
	})
	if err != nil {
		return "", &ExtractionError{Op: "generate", Err: err}
	}
	logger.Debug("extraction usage",
		logging.String("model", m.model),
		logging.String("finish_reason", resp.FinishReason),
		logging.Int("prompt_tokens", resp.Usage.PromptTokens),
		logging.Int("output_tokens", resp.Usage.CandidatesTokens),
	)
	return resp.Text, nil
}

func (m *GeminiModel) cleanup(logger *slog.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := m.client.DeleteFile(ctx, name); err != nil {
		logger.Debug("uploaded recording not removed", logging.String("file", name), logging.Error(err))
	}
}

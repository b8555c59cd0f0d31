package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Part is one element of a content turn: inline text or an uploaded file reference.
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"fileData,omitempty"`
}

// FileData references a file previously uploaded through UploadFile.
type FileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

// Content is one conversation turn.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig carries sampling settings. Nil fields use the model defaults.
type GenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Usage reports token accounting for a call.
type Usage struct {
	PromptTokens     int `json:"promptTokenCount"`
	CandidatesTokens int `json:"candidatesTokenCount"`
	TotalTokens      int `json:"totalTokenCount"`
}

// GenerateResponse is the text of the first candidate plus metadata.
type GenerateResponse struct {
	Text         string
	FinishReason string
	Usage        Usage
}

type generateResponseBody struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata Usage `json:"usageMetadata"`
}

type emptyCandidateError struct {
	Op           string
	FinishReason string
	BlockReason  string
	Snippet      string
}

func (e *emptyCandidateError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, block_reason=%q, response_snippet=%s)",
		e.Op, e.FinishReason, e.BlockReason, e.Snippet)
}

// UserText builds a single-part user turn.
func UserText(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// SystemText builds a system instruction.
func SystemText(text string) *Content {
	return &Content{Parts: []Part{{Text: text}}}
}

// Float64 returns a pointer for optional generation settings.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer for optional generation settings.
func Int(v int) *int { return &v }

// GenerateContent calls models/{model}:generateContent. A response without
// candidate text is retried and finally reported as an error; a blocked prompt
// is not retried.
func (c *Client) GenerateContent(ctx context.Context, model string, req GenerateRequest) (GenerateResponse, error) {
	const op = "gemini generate"
	if err := c.requireKey(op); err != nil {
		return GenerateResponse{}, err
	}
	if len(req.Contents) == 0 {
		return GenerateResponse{}, fmt.Errorf("%s: contents required", op)
	}
	body, err := jsonBody(req)
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("%s: %w", op, err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.generateOnce(ctx, op, model, header, body)
		if err == nil {
			return result, nil
		}
		var emptyErr *emptyCandidateError
		if errors.As(err, &emptyErr) && emptyErr.BlockReason != "" {
			return GenerateResponse{}, err
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return GenerateResponse{}, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return GenerateResponse{}, err
		}
		lastErr = err
	}
	return GenerateResponse{}, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, op, model string, header http.Header, body func() (io.Reader, int64, error)) (GenerateResponse, error) {
	resp, err := c.doOnce(ctx, request{
		op:     op,
		method: http.MethodPost,
		url:    c.endpoint(apiVersion, modelResource(model)+":generateContent"),
		header: header,
		body:   body,
	})
	if err != nil {
		return GenerateResponse{}, err
	}
	var decoded generateResponseBody
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return GenerateResponse{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	result := GenerateResponse{Usage: decoded.UsageMetadata}
	for _, candidate := range decoded.Candidates {
		if result.FinishReason == "" {
			result.FinishReason = candidate.FinishReason
		}
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		if strings.TrimSpace(text.String()) != "" {
			result.Text = text.String()
			result.FinishReason = candidate.FinishReason
			return result, nil
		}
	}
	emptyErr := &emptyCandidateError{
		Op:           op,
		FinishReason: result.FinishReason,
		Snippet:      summarizeSnippet(string(resp.body)),
	}
	if decoded.PromptFeedback != nil {
		emptyErr.BlockReason = decoded.PromptFeedback.BlockReason
	}
	return GenerateResponse{}, emptyErr
}

// Model describes a model resource.
type Model struct {
	Name             string `json:"name"`
	DisplayName      string `json:"displayName"`
	InputTokenLimit  int    `json:"inputTokenLimit"`
	OutputTokenLimit int    `json:"outputTokenLimit"`
}

// GetModel fetches model metadata. It doubles as a credentials check.
func (c *Client) GetModel(ctx context.Context, model string) (Model, error) {
	const op = "gemini get model"
	if err := c.requireKey(op); err != nil {
		return Model{}, err
	}
	resp, err := c.doWithRetry(ctx, request{
		op:     op,
		method: http.MethodGet,
		url:    c.endpoint(apiVersion, modelResource(model)),
	})
	if err != nil {
		return Model{}, err
	}
	var decoded Model
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return Model{}, fmt.Errorf("%s: decode response: %w", op, err)
	}
	return decoded, nil
}

func modelResource(model string) string {
	model = strings.TrimPrefix(strings.TrimSpace(model), "/")
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

package diagram

import (
	"context"

	"procscribe/internal/config"
	"procscribe/internal/services/gemini"
)

// ChatModel answers a single user turn in a fresh session seeded with a
// system instruction.
type ChatModel interface {
	Chat(ctx context.Context, systemInstruction, userMessage string) (string, error)
}

// Settings are the sampling parameters used for diagram generation.
type Settings struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// SettingsFromConfig copies the sampling parameters from the diagram section.
func SettingsFromConfig(cfg config.Diagram) Settings {
	return Settings{
		Temperature:     cfg.Temperature,
		TopP:            cfg.TopP,
		TopK:            cfg.TopK,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
}

// GeminiChat is a ChatModel backed by generateContent.
type GeminiChat struct {
	client   *gemini.Client
	model    string
	settings Settings
}

// NewGeminiChat constructs a ChatModel for model.
func NewGeminiChat(client *gemini.Client, model string, settings Settings) *GeminiChat {
	return &GeminiChat{client: client, model: model, settings: settings}
}

// Chat sends userMessage as the only user turn.
func (g *GeminiChat) Chat(ctx context.Context, systemInstruction, userMessage string) (string, error) {
	req := gemini.GenerateRequest{
		Contents:          []gemini.Content{gemini.UserText(userMessage)},
		SystemInstruction: gemini.SystemText(systemInstruction),
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:      gemini.Float64(g.settings.Temperature),
			TopP:             gemini.Float64(g.settings.TopP),
			TopK:             gemini.Int(g.settings.TopK),
			MaxOutputTokens:  g.settings.MaxOutputTokens,
			ResponseMimeType: "text/plain",
		},
	}
	resp, err := g.client.GenerateContent(ctx, g.model, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

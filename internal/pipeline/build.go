package pipeline

import (
	"log/slog"

	"procscribe/internal/config"
	"procscribe/internal/diagram"
	"procscribe/internal/document"
	"procscribe/internal/extraction"
	"procscribe/internal/logging"
	"procscribe/internal/services/gemini"
)

// NewGeminiClient builds the Gemini transport from configuration.
func NewGeminiClient(cfg *config.Config) *gemini.Client {
	return gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	}, gemini.WithRetryMaxAttempts(cfg.Gemini.RetryAttempts))
}

// FromConfig wires the Gemini-backed pipeline described by cfg. Extra options
// are applied after the configured ones.
func FromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.RequireGemini(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := NewGeminiClient(cfg)

	poll := gemini.PollPolicy{
		Interval:    cfg.PollInterval(),
		MaxInterval: cfg.PollMaxInterval(),
		Timeout:     cfg.PollTimeout(),
	}
	model := extraction.NewGeminiModel(client, cfg.Gemini.ExtractionModel, poll, logging.NewComponentLogger(logger, "gemini"))
	extractOpts := []extraction.Option{extraction.WithLogger(logging.NewComponentLogger(logger, "extraction"))}
	if cfg.Probe.Enabled {
		extractOpts = append(extractOpts, extraction.WithProbe(cfg.Probe.FFprobeBinary, nil))
	}
	extractor := extraction.NewClient(model, extractOpts...)

	docRenderer := document.NewRenderer(cfg.Paths.OutputDir,
		document.WithLogger(logging.NewComponentLogger(logger, "document")))

	base := []Option{
		WithConcurrentRender(cfg.Pipeline.ConcurrentRender),
		WithLogger(logging.NewComponentLogger(logger, "pipeline")),
	}
	if cfg.Diagram.Enabled {
		chat := diagram.NewGeminiChat(client, cfg.Gemini.DiagramModel, diagram.SettingsFromConfig(cfg.Diagram))
		base = append(base, WithDiagram(diagram.NewRenderer(chat, cfg.Paths.OutputDir,
			diagram.WithLogger(logging.NewComponentLogger(logger, "diagram")))))
	}
	return New(extractor, docRenderer, cfg.Paths.OutputDir, append(base, opts...)...), nil
}

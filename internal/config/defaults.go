package config

const (
	defaultConfigPath             = "~/.config/procscribe/config.toml"
	defaultOutputDir              = "."
	defaultUploadDir              = "~/.local/share/procscribe/uploads"
	defaultLogDir                 = "~/.local/share/procscribe/logs"
	defaultGeminiBaseURL          = "https://generativelanguage.googleapis.com"
	defaultExtractionModel        = "gemini-1.5-pro-latest"
	defaultDiagramModel           = "gemini-1.5-flash-002"
	defaultGeminiTimeoutSeconds   = 300
	defaultGeminiRetryAttempts    = 3
	defaultPollIntervalSeconds    = 10
	defaultPollMaxIntervalSeconds = 30
	defaultPollTimeoutSeconds     = 900
	defaultDiagramTemperature     = 1.0
	defaultDiagramTopP            = 0.8
	defaultDiagramTopK            = 40
	defaultDiagramMaxTokens       = 8192
	defaultFFprobeBinary          = "ffprobe"
	defaultHistoryFile            = "history.db"
	defaultAPIBind                = "127.0.0.1:7490"
	defaultMaxUploadMiB           = 2048
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
		},
		Gemini: Gemini{
			BaseURL:         defaultGeminiBaseURL,
			ExtractionModel: defaultExtractionModel,
			DiagramModel:    defaultDiagramModel,
			TimeoutSeconds:  defaultGeminiTimeoutSeconds,
			RetryAttempts:   defaultGeminiRetryAttempts,
		},
		Extraction: Extraction{
			PollIntervalSeconds:    defaultPollIntervalSeconds,
			PollMaxIntervalSeconds: defaultPollMaxIntervalSeconds,
			PollTimeoutSeconds:     defaultPollTimeoutSeconds,
		},
		Diagram: Diagram{
			Enabled:         true,
			Temperature:     defaultDiagramTemperature,
			TopP:            defaultDiagramTopP,
			TopK:            defaultDiagramTopK,
			MaxOutputTokens: defaultDiagramMaxTokens,
		},
		Pipeline: Pipeline{
			ConcurrentRender: true,
		},
		Probe: Probe{
			FFprobeBinary: defaultFFprobeBinary,
		},
		History: History{
			Enabled: true,
		},
		API: API{
			Bind:         defaultAPIBind,
			MaxUploadMiB: defaultMaxUploadMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

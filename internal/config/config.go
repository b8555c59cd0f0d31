package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"procscribe/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	UploadDir string `toml:"upload_dir"`
	LogDir    string `toml:"log_dir"`
}

// Gemini contains connection settings for the remote inference service.
type Gemini struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	ExtractionModel string `toml:"extraction_model"`
	DiagramModel    string `toml:"diagram_model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	RetryAttempts   int    `toml:"retry_attempts"`
}

// Extraction contains timing for the uploaded-video readiness poll.
type Extraction struct {
	PollIntervalSeconds    int `toml:"poll_interval_seconds"`
	PollMaxIntervalSeconds int `toml:"poll_max_interval_seconds"`
	PollTimeoutSeconds     int `toml:"poll_timeout_seconds"`
}

// Diagram contains generation settings for the flow-diagram request.
type Diagram struct {
	Enabled         bool    `toml:"enabled"`
	Temperature     float64 `toml:"temperature"`
	TopP            float64 `toml:"top_p"`
	TopK            int     `toml:"top_k"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
}

// Pipeline contains orchestration switches.
type Pipeline struct {
	ConcurrentRender bool `toml:"concurrent_render"`
}

// Probe contains configuration for the optional ffprobe input check.
type Probe struct {
	Enabled       bool   `toml:"enabled"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// History contains configuration for the run history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// API contains configuration for the HTTP API server.
type API struct {
	Bind         string `toml:"bind"`
	Token        string `toml:"token"`
	MaxUploadMiB int    `toml:"max_upload_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for procscribe.
//
// Configuration sections by subsystem:
//   - Paths: output, upload, and log directories
//   - Gemini: API key, endpoint, and model identifiers
//   - Extraction: readiness poll interval, backoff ceiling, and timeout
//   - Diagram: flow-diagram generation settings
//   - Pipeline: renderer concurrency
//   - Probe: optional ffprobe validation of input videos
//   - History: SQLite run history
//   - API: HTTP server bind address, token, and upload limit
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Gemini     Gemini     `toml:"gemini"`
	Extraction Extraction `toml:"extraction"`
	Diagram    Diagram    `toml:"diagram"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Probe      Probe      `toml:"probe"`
	History    History    `toml:"history"`
	API        API        `toml:"api"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	loadDotEnv()
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env from the working directory without overriding
// variables that are already set.
func loadDotEnv() {
	if info, err := os.Stat(".env"); err != nil || info.IsDir() {
		return
	}
	_ = godotenv.Load(".env")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("procscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, upload, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.UploadDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// RequireGemini reports a configuration error when the remote service cannot
// be reached for lack of credentials. Commands that never call the service
// skip this check.
func (c *Config) RequireGemini() error {
	if strings.TrimSpace(c.Gemini.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("%w: gemini.api_key is required. Set GEMINI_API_KEY (or add it to .env) or edit %s (create with 'procscribe config init')", services.ErrConfiguration, defaultPath)
}

// PollInterval returns the initial readiness poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Extraction.PollIntervalSeconds) * time.Second
}

// PollMaxInterval returns the backoff ceiling for the readiness poll.
func (c *Config) PollMaxInterval() time.Duration {
	return time.Duration(c.Extraction.PollMaxIntervalSeconds) * time.Second
}

// PollTimeout returns the overall readiness deadline.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Extraction.PollTimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the API upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.API.MaxUploadMiB) << 20
}

// LogFilePath returns the path of the persistent log file.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "procscribe.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

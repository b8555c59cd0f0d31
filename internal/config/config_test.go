package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"procscribe/internal/config"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
}

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantUploads := filepath.Join(tempHome, ".local", "share", "procscribe", "uploads")
	if cfg.Paths.UploadDir != wantUploads {
		t.Fatalf("unexpected upload dir: got %q want %q", cfg.Paths.UploadDir, wantUploads)
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Gemini.APIKey != "test-key" {
		t.Fatalf("expected key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.ExtractionModel != "gemini-1.5-pro-latest" {
		t.Fatalf("unexpected extraction model: %q", cfg.Gemini.ExtractionModel)
	}
	if cfg.Gemini.DiagramModel != "gemini-1.5-flash-002" {
		t.Fatalf("unexpected diagram model: %q", cfg.Gemini.DiagramModel)
	}
	if cfg.History.Path != filepath.Join(cfg.Paths.LogDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.API.Bind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if !cfg.Diagram.Enabled || !cfg.Pipeline.ConcurrentRender {
		t.Fatal("expected diagram and concurrent rendering enabled by default")
	}
	if cfg.Probe.Enabled {
		t.Fatal("expected probe disabled by default")
	}
	if err := cfg.RequireGemini(); err != nil {
		t.Fatalf("RequireGemini: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.UploadDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearKeyEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "procscribe.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Gemini struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"gemini"`
		Extraction struct {
			PollIntervalSeconds int `toml:"poll_interval_seconds"`
		} `toml:"extraction"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Gemini.APIKey = "abc123"
	custom.Gemini.BaseURL = "https://example.com/gemini/"
	custom.Extraction.PollIntervalSeconds = 5
	custom.Logging.Format = " JSON "
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Gemini.APIKey != "abc123" {
		t.Fatalf("unexpected api key: %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.BaseURL != "https://example.com/gemini" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Gemini.BaseURL)
	}
	if cfg.PollInterval().Seconds() != 5 {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval())
	}
	if cfg.PollMaxInterval().Seconds() != 30 {
		t.Fatalf("unexpected poll max interval: %v", cfg.PollMaxInterval())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
}

func TestConfigFileKeyWinsOverEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[gemini]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Gemini.APIKey != "file-key" {
		t.Fatalf("expected file key, got %q", cfg.Gemini.APIKey)
	}
}

func TestGoogleAPIKeyFallback(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")
	t.Setenv("HOME", t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Gemini.APIKey != "google-key" {
		t.Fatalf("expected GOOGLE_API_KEY fallback, got %q", cfg.Gemini.APIKey)
	}
}

func TestRequireGeminiWithoutKey(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load should not require a key: %v", err)
	}
	err = cfg.RequireGemini()
	if err == nil {
		t.Fatal("expected RequireGemini to fail without a key")
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected hint about GEMINI_API_KEY, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_gemini_api_key_here") {
		t.Fatalf("sample config missing placeholder key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Diagram.TopK != 40 {
		t.Fatalf("unexpected sample top_k: %d", cfg.Diagram.TopK)
	}

	clearKeyEnv(t)
	t.Setenv("HOME", t.TempDir())
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"base url", func(c *config.Config) { c.Gemini.BaseURL = "not a url" }, "gemini.base_url"},
		{"timeout", func(c *config.Config) { c.Gemini.TimeoutSeconds = 0 }, "gemini.timeout_seconds"},
		{"retries", func(c *config.Config) { c.Gemini.RetryAttempts = 0 }, "gemini.retry_attempts"},
		{"poll interval", func(c *config.Config) { c.Extraction.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"poll ceiling", func(c *config.Config) { c.Extraction.PollMaxIntervalSeconds = 1 }, "poll_max_interval_seconds"},
		{"poll timeout", func(c *config.Config) { c.Extraction.PollTimeoutSeconds = -1 }, "poll_timeout_seconds"},
		{"top_p", func(c *config.Config) { c.Diagram.TopP = 1.5 }, "diagram.top_p"},
		{"max tokens", func(c *config.Config) { c.Diagram.MaxOutputTokens = 0 }, "diagram.max_output_tokens"},
		{"bind", func(c *config.Config) { c.API.Bind = "nohost" }, "api.bind"},
		{"upload limit", func(c *config.Config) { c.API.MaxUploadMiB = 0 }, "api.max_upload_mib"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

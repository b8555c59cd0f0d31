package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateDiagram(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGemini() error {
	parsed, err := url.Parse(c.Gemini.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("gemini.base_url must be an absolute URL, got %q", c.Gemini.BaseURL)
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	if c.Gemini.RetryAttempts < 1 {
		return errors.New("gemini.retry_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.PollIntervalSeconds <= 0 {
		return errors.New("extraction.poll_interval_seconds must be positive")
	}
	if c.Extraction.PollMaxIntervalSeconds < c.Extraction.PollIntervalSeconds {
		return errors.New("extraction.poll_max_interval_seconds must be >= extraction.poll_interval_seconds")
	}
	if c.Extraction.PollTimeoutSeconds <= 0 {
		return errors.New("extraction.poll_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDiagram() error {
	if c.Diagram.Temperature < 0 || c.Diagram.Temperature > 2 {
		return errors.New("diagram.temperature must be between 0 and 2")
	}
	if c.Diagram.TopP < 0 || c.Diagram.TopP > 1 {
		return errors.New("diagram.top_p must be between 0 and 1")
	}
	if c.Diagram.TopK < 0 {
		return errors.New("diagram.top_k must be non-negative")
	}
	if c.Diagram.MaxOutputTokens <= 0 {
		return errors.New("diagram.max_output_tokens must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind must be host:port: %w", err)
	}
	if c.API.MaxUploadMiB <= 0 {
		return errors.New("api.max_upload_mib must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

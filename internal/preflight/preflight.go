package preflight

import (
	"context"

	"procscribe/internal/config"
	"procscribe/internal/services/gemini"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options adjusts RunAll.
type Options struct {
	// SkipRemote skips the Gemini reachability checks.
	SkipRemote bool
	// ClientOptions are appended when building the Gemini client.
	ClientOptions []gemini.Option
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckAPIKey(cfg)}

	if !opts.SkipRemote && results[0].Passed {
		clientOpts := []gemini.Option{gemini.WithRetryMaxAttempts(1)}
		clientOpts = append(clientOpts, opts.ClientOptions...)
		client := gemini.NewClient(gemini.Config{
			APIKey:         cfg.Gemini.APIKey,
			BaseURL:        cfg.Gemini.BaseURL,
			TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
		}, clientOpts...)
		results = append(results, CheckGemini(ctx, client, "Extraction model", cfg.Gemini.ExtractionModel))
		if cfg.Diagram.Enabled && cfg.Gemini.DiagramModel != cfg.Gemini.ExtractionModel {
			results = append(results, CheckGemini(ctx, client, "Diagram model", cfg.Gemini.DiagramModel))
		}
	}

	if cfg.Probe.Enabled {
		results = append(results, CheckBinary("FFprobe", cfg.Probe.FFprobeBinary))
	}

	results = append(results,
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	)
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

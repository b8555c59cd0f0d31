package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"procscribe/internal/config"
	"procscribe/internal/services/gemini"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBinary(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "ffprobe")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	if r := CheckBinary("FFprobe", present); !r.Passed || r.Detail != present {
		t.Fatalf("expected present binary to pass, got %#v", r)
	}
	if r := CheckBinary("FFprobe", "clearly-not-present-binary"); r.Passed || r.Detail == "" {
		t.Fatalf("expected missing binary to fail, got %#v", r)
	}
	if r := CheckBinary("FFprobe", "  "); r.Passed {
		t.Fatal("expected unconfigured binary to fail")
	}
}

func modelServer(t *testing.T, key string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != key {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/v1beta/models/gemini-") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/v1beta/")
		_ = json.NewEncoder(w).Encode(map[string]any{"name": name, "displayName": "Gemini"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckGemini(t *testing.T) {
	srv := modelServer(t, "good-key")

	good := gemini.NewClient(gemini.Config{APIKey: "good-key", BaseURL: srv.URL}, gemini.WithRetryMaxAttempts(1))
	if r := CheckGemini(context.Background(), good, "Extraction model", "gemini-1.5-pro-latest"); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	} else if r.Detail != "models/gemini-1.5-pro-latest (Gemini)" {
		t.Fatalf("unexpected detail %q", r.Detail)
	}

	bad := gemini.NewClient(gemini.Config{APIKey: "bad-key", BaseURL: srv.URL}, gemini.WithRetryMaxAttempts(1))
	if r := CheckGemini(context.Background(), bad, "Extraction model", "gemini-1.5-pro-latest"); r.Passed || !strings.Contains(r.Detail, "auth failed") {
		t.Fatalf("expected auth failure, got %#v", r)
	}

	if r := CheckGemini(context.Background(), good, "Extraction model", "unknown"); r.Passed || !strings.Contains(r.Detail, "not found") {
		t.Fatalf("expected not found, got %#v", r)
	}
}

func TestRunAll(t *testing.T) {
	srv := modelServer(t, "good-key")
	base := t.TempDir()
	cfg := config.Default()
	cfg.Gemini.APIKey = "good-key"
	cfg.Gemini.BaseURL = srv.URL
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), &cfg, Options{})
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := "Gemini API key,Extraction model,Diagram model,Output directory,Upload directory,Log directory"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("checks = %s, want %s", got, want)
	}

	cfg.Probe.Enabled = true
	cfg.Probe.FFprobeBinary = "clearly-not-present-binary"
	cfg.Gemini.APIKey = ""
	results = RunAll(context.Background(), &cfg, Options{})
	failed := Failed(results)
	if len(failed) != 2 || failed[0].Name != "Gemini API key" || failed[1].Name != "FFprobe" {
		t.Fatalf("unexpected failures: %#v", failed)
	}
}

func TestRunAllSkipRemote(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Gemini.APIKey = "k"
	cfg.Gemini.BaseURL = "http://127.0.0.1:1"
	cfg.Paths.OutputDir = base
	cfg.Paths.UploadDir = base
	cfg.Paths.LogDir = base

	results := RunAll(context.Background(), &cfg, Options{SkipRemote: true})
	for _, r := range results {
		if strings.HasSuffix(r.Name, "model") {
			t.Fatalf("remote check ran despite SkipRemote: %#v", r)
		}
	}
	if len(Failed(results)) != 0 {
		t.Fatalf("unexpected failures: %#v", Failed(results))
	}
}

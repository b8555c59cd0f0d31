package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"procscribe/internal/config"
	"procscribe/internal/services/gemini"
)

const remoteCheckTimeout = 30 * time.Second

// CheckAPIKey reports whether a Gemini API key is configured.
func CheckAPIKey(cfg *config.Config) Result {
	const name = "Gemini API key"
	if err := cfg.RequireGemini(); err != nil {
		return Result{Name: name, Detail: "missing (set GEMINI_API_KEY or gemini.api_key)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckGemini verifies the API is reachable and the key can read model.
func CheckGemini(ctx context.Context, client *gemini.Client, name, model string) Result {
	checkCtx, cancel := context.WithTimeout(ctx, remoteCheckTimeout)
	defer cancel()

	info, err := client.GetModel(checkCtx, model)
	if err != nil {
		return Result{Name: name, Detail: summarizeGeminiError(model, err)}
	}
	detail := info.Name
	if info.DisplayName != "" {
		detail = fmt.Sprintf("%s (%s)", info.Name, info.DisplayName)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckBinary verifies that command resolves to an executable.
func CheckBinary(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeGeminiError(model string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (Gemini API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (Gemini API unreachable)"
	}
	switch gemini.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return "auth failed (invalid API key)"
	case http.StatusNotFound:
		return fmt.Sprintf("model %q not found", model)
	}
	return err.Error()
}

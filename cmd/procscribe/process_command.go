package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"procscribe/internal/config"
	"procscribe/internal/pipeline"
	"procscribe/internal/services"
)

// processOutput is the --json form of a finished run.
type processOutput struct {
	RunID        string   `json:"run_id"`
	VideoPath    string   `json:"video_path"`
	ProcessName  string   `json:"process_name,omitempty"`
	Status       string   `json:"status"`
	DocumentPath *string  `json:"document_path"`
	DiagramPath  *string  `json:"diagram_path"`
	DiagramError string   `json:"diagram_error,omitempty"`
	FailedStage  string   `json:"failed_stage,omitempty"`
	ErrorKind    string   `json:"error_kind,omitempty"`
	Error        string   `json:"error,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var noDiagram bool
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "process <video>",
		Short: "Generate a process document and flow diagram from a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyProcessOverrides(cfg, outputDir, noDiagram); err != nil {
				return err
			}

			logger, err := fileLogger(cfg, verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			var opts []pipeline.Option
			store, err := openHistory(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			if store != nil {
				defer store.Close()
				opts = append(opts, pipeline.WithRecorder(store))
			}

			p, err := pipeline.FromConfig(cfg, logger, opts...)
			if err != nil {
				return err
			}

			videoPath := args[0]
			if expanded, err := config.ExpandPath(videoPath); err == nil {
				videoPath = expanded
			}

			spin := startProgress(cmd.ErrOrStderr(), "Processing "+filepath.Base(videoPath))
			result, runErr := p.Process(cmd.Context(), videoPath)
			spin.Stop()

			if jsonOutput {
				if err := writeJSON(cmd, newProcessOutput(result, runErr)); err != nil {
					return err
				}
			} else {
				printProcessResult(cmd.OutOrStdout(), result, runErr, shouldColorize(cmd.OutOrStdout()))
			}

			if failure := runFailure(result, runErr); failure != nil {
				return fmt.Errorf("%s failed: %w", stageLabel(result.FailedStage), failure)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the generated files (overrides paths.output_dir)")
	cmd.Flags().BoolVar(&noDiagram, "no-diagram", false, "Skip flow-diagram generation")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Mirror log records to stderr")
	return cmd
}

func applyProcessOverrides(cfg *config.Config, outputDir string, noDiagram bool) error {
	if dir := strings.TrimSpace(outputDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("resolve output dir: %w", err)
		}
		if err := os.MkdirAll(expanded, 0o755); err != nil {
			return fmt.Errorf("create output dir %q: %w", expanded, err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if noDiagram {
		cfg.Diagram.Enabled = false
	}
	return nil
}

func newProcessOutput(result pipeline.Result, runErr error) processOutput {
	document, diagram := result.Paths()
	out := processOutput{
		RunID:        result.RunID,
		VideoPath:    result.VideoPath,
		Status:       string(result.Status()),
		DocumentPath: document,
		DiagramPath:  diagram,
		FailedStage:  string(result.FailedStage),
		Warnings:     result.Warnings,
		DurationMS:   result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	if result.Process != nil {
		out.ProcessName = result.Process.ProcessName
	}
	if result.DiagramErr != nil {
		out.DiagramError = result.DiagramErr.Error()
	}
	if failure := runFailure(result, runErr); failure != nil {
		out.Error = failure.Error()
		out.ErrorKind = services.Kind(failure)
	}
	return out
}

func printProcessResult(out io.Writer, result pipeline.Result, runErr error, colorize bool) {
	if !result.Succeeded() {
		fmt.Fprintln(out, renderStatusLine("Run "+shortID(result.RunID), statusError,
			fmt.Sprintf("%s: %v", stageLabel(result.FailedStage), runFailure(result, runErr)), colorize))
		return
	}

	pairs := [][2]string{
		{"Run", result.RunID},
		{"Process", result.Process.ProcessName},
		{"Document", result.DocumentPath},
	}
	switch {
	case result.DiagramPath != "":
		pairs = append(pairs, [2]string{"Diagram", result.DiagramPath})
	case result.DiagramErr != nil:
		pairs = append(pairs, [2]string{"Diagram", "failed: " + result.DiagramErr.Error()})
	default:
		pairs = append(pairs, [2]string{"Diagram", "disabled"})
	}
	pairs = append(pairs, [2]string{"Duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String()})
	fmt.Fprintln(out, renderKeyValues(pairs))

	for _, warning := range result.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
	if result.DiagramErr != nil {
		fmt.Fprintln(out, renderStatusLine("Diagram", statusWarn, "document written without a diagram", colorize))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// runFailure returns the error that stopped the run, if any.
func runFailure(result pipeline.Result, runErr error) error {
	if runErr != nil {
		return runErr
	}
	return result.Failure
}

func stageLabel(stage pipeline.Stage) string {
	if stage == "" {
		return "run"
	}
	return string(stage)
}

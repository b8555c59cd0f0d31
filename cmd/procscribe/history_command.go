package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"procscribe/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			store, err := openHistory(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			if store == nil {
				return errors.New("run history is disabled (history.enabled = false)")
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, run)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(runDetails(*run)))
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func renderRuns(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			string(run.Status),
			valueOrDash(run.ProcessName),
			valueOrDash(run.FailedStage),
			run.Duration().Round(time.Second).String(),
			filepath.Base(run.VideoPath),
		})
	}
	return renderTable(
		[]string{"ID", "Started", "Status", "Process", "Failed Stage", "Duration", "Video"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func runDetails(run history.Run) [][2]string {
	pairs := [][2]string{
		{"ID", run.ID},
		{"Video", run.VideoPath},
		{"Status", string(run.Status)},
		{"Process", valueOrDash(run.ProcessName)},
		{"Document", valueOrDash(run.DocumentPath)},
		{"Diagram", valueOrDash(run.DiagramPath)},
		{"Started", run.StartedAt.Local().Format(time.RFC3339)},
		{"Duration", run.Duration().Round(time.Millisecond).String()},
	}
	if run.FailedStage != "" {
		pairs = append(pairs, [2]string{"Failed Stage", run.FailedStage})
	}
	if run.ErrorMessage != "" {
		pairs = append(pairs, [2]string{"Error", fmt.Sprintf("%s (%s)", run.ErrorMessage, run.ErrorKind)})
	}
	if run.DiagramError != "" {
		pairs = append(pairs, [2]string{"Diagram Error", run.DiagramError})
	}
	return pairs
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

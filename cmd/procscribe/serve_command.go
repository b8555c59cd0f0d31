package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"procscribe/internal/api"
	"procscribe/internal/logging"
	"procscribe/internal/pipeline"
	"procscribe/internal/preflight"
)

var version = "dev"

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if b := strings.TrimSpace(bind); b != "" {
				cfg.API.Bind = b
			}

			if !skipChecks {
				results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{})
				if failed := preflight.Failed(results); len(failed) > 0 {
					colorize := shouldColorize(cmd.ErrOrStderr())
					for _, r := range failed {
						fmt.Fprintln(cmd.ErrOrStderr(), renderStatusLine(r.Name, statusError, r.Detail, colorize))
					}
					return errors.New("preflight checks failed; run 'procscribe check' for details")
				}
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			serverCfg := api.ServerConfig{
				Bind:           cfg.API.Bind,
				Token:          cfg.API.Token,
				OutputDir:      cfg.Paths.OutputDir,
				UploadDir:      cfg.Paths.UploadDir,
				MaxUploadBytes: cfg.MaxUploadBytes(),
				Logger:         logging.NewComponentLogger(logger, "api"),
				StartTime:      time.Now(),
				Version:        version,
			}

			var opts []pipeline.Option
			store, err := openHistory(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			if store != nil {
				defer store.Close()
				opts = append(opts, pipeline.WithRecorder(store))
				serverCfg.Runs = store
			}

			p, err := pipeline.FromConfig(cfg, logger, opts...)
			if err != nil {
				return err
			}
			serverCfg.Processor = p

			return api.NewServer(serverCfg).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides api.bind)")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Start without running preflight checks")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"oktabot/internal/errclass"
	"oktabot/internal/guide"
	"oktabot/internal/ledger"
	"oktabot/internal/logging"
	"oktabot/internal/metrics"
	"oktabot/internal/notifications"
	"oktabot/internal/preflight"
	"oktabot/internal/producer"
	"oktabot/internal/prompt"
	"oktabot/internal/retry"
	"oktabot/internal/stageexec"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var guidePath string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce the next video (interactive, or from a weekly guide with --guide)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			opts := producer.Options{
				Config:     cfg,
				ConfigPath: ctx.configPath,
				Self:       executablePath(),
				Logger:     logger,
				Runner:     stageexec.CommandRunner{Logger: logger},
				Notifier:   notifications.NewService(cfg),
				Metrics:    metrics.New(),
			}
			if path := strings.TrimSpace(guidePath); path != "" {
				g, err := guide.Load(path)
				if err != nil {
					return err
				}
				opts.Guide = g
			} else {
				if !prompt.Interactive() {
					return errors.New("manual mode needs an interactive terminal; pass --guide <file> for scheduled runs")
				}
				opts.Prompter = prompt.New()
			}

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					names := make([]string, 0, len(failed))
					for _, r := range failed {
						names = append(names, fmt.Sprintf("%s (%s)", r.Name, r.Detail))
					}
					return fmt.Errorf("preflight failed: %s; run `oktabot doctor` for details", strings.Join(names, ", "))
				}
			}

			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				logging.WarnWithContext(logger, "run history unavailable", "ledger_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "this run will not appear in `oktabot history`"),
				)
			} else {
				defer store.Close()
				opts.Ledger = store
			}
			opts.Retry = retry.NewFromConfig(cfg, logger, retry.WithObserver(func(t errclass.ErrorType, _ int, _ time.Duration, _ error) {
				opts.Metrics.IncRetry(string(t))
			}))

			p, err := producer.New(opts)
			if err != nil {
				return err
			}
			outcome, runErr := p.Run(cmd.Context())
			if err := opts.Metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
				logging.WarnWithContext(logger, "failed to export metrics", "metrics_write_failed", logging.Error(err))
			}
			if runErr != nil {
				if outcome != nil && outcome.Project != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Project left at %s; rerun to resume.\n", outcome.Project.Dir)
				}
				return runErr
			}

			if outcome.NoTask {
				fmt.Fprintf(out, "No task scheduled for %s.\n", time.Now().Weekday())
				return nil
			}
			fmt.Fprintf(out, "Project: %s\n", outcome.Project.Dir)
			if len(outcome.Executed) > 0 {
				fmt.Fprintf(out, "Ran: %s\n", strings.Join(outcome.Executed, ", "))
			}
			if len(outcome.Skipped) > 0 {
				fmt.Fprintf(out, "Already complete: %s\n", strings.Join(outcome.Skipped, ", "))
			}
			if outcome.VideoID != "" {
				fmt.Fprintf(out, "Published: https://youtu.be/%s\n", outcome.VideoID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&guidePath, "guide", "", "Weekly guide file (YAML or JSON); selects scheduled mode")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not run environment checks before starting")
	return cmd
}

// executablePath is what stage templates receive as {self}.
func executablePath() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}
	return "oktabot"
}

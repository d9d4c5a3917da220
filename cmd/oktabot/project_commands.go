package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"oktabot/internal/assets"
	"oktabot/internal/config"
	"oktabot/internal/fileutil"
	"oktabot/internal/project"
	"oktabot/internal/validation"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <project-dir>",
		Short: "Run the pre-editing asset gate against a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			proj, err := openProject(cfg, args[0])
			if err != nil {
				return err
			}

			verifier := assets.NewVerifier(assets.ThresholdsFromConfig(cfg.Assets))
			gate := validation.New(verifier, validation.MusicFromConfig(cfg), logger)
			report := gate.ValidateAll(cmd.Context(), proj.PlanPath(), proj.AudioDir(), proj.ImageDir())

			out := cmd.OutOrStdout()
			if report.OK() {
				fmt.Fprintf(out, "%s: all assets valid\n", proj.Name())
				return nil
			}
			rows := make([][]string, 0, len(report.Issues))
			for _, issue := range report.Issues {
				rows = append(rows, []string{string(issue.Kind), issue.Message})
			}
			writeTable(out, []string{"Kind", "Issue"}, rows)
			for _, hint := range validation.SuggestRecovery(report.Issues) {
				fmt.Fprintf(out, "hint: %s\n", hint)
			}
			return fmt.Errorf("%d validation issue(s) in %s", len(report.Issues), proj.Name())
		},
	}
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <project-dir>",
		Short: "Check recorded file hashes against disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			proj, err := openProject(cfg, args[0])
			if err != nil {
				return err
			}

			status := project.LoadStatus(logger, proj.StatusPath())
			record := project.LoadIntegrity(logger, proj.IntegrityPath())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Completed steps: %v\n", status.Steps())
			mismatches := record.Verify(proj.Abs, fileutil.HashFile)
			if len(mismatches) == 0 {
				fmt.Fprintf(out, "%d tracked file(s) unchanged\n", record.Len())
				return nil
			}
			rows := make([][]string, 0, len(mismatches))
			for _, m := range mismatches {
				rows = append(rows, []string{m.Path, m.Reason})
			}
			writeTable(out, []string{"File", "Problem"}, rows)
			return fmt.Errorf("%d of %d tracked file(s) changed; the next run will reset %s", len(mismatches), record.Len(), proj.Name())
		},
	}
}

// openProject accepts an absolute or relative directory, or a path relative
// to the channels directory such as "history-bites/volcanoes".
func openProject(cfg *config.Config, arg string) (*project.Project, error) {
	candidates := []string{arg}
	if !filepath.IsAbs(arg) {
		candidates = append(candidates, filepath.Join(cfg.Paths.ChannelsDir, arg))
	}
	var firstErr error
	for _, dir := range candidates {
		proj, err := project.Open(nil, dir)
		if err == nil {
			return proj, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

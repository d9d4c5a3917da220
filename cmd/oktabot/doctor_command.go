package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"oktabot/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, stage binaries, disk space, and music",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if checkLLM {
				cfg.Preflight.CheckLLM = true
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, checkState(r), r.Detail})
			}
			out := cmd.OutOrStdout()
			writeTable(out, []string{"Check", "Result", "Detail"}, rows)

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkLLM, "llm", false, "Also send a test request to the LLM API")
	return cmd
}

func checkState(r preflight.Result) string {
	switch {
	case r.Passed:
		return "ok"
	case r.Optional:
		return "warn"
	default:
		return "FAIL"
	}
}

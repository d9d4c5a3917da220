package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"oktabot/internal/ledger"
	"oktabot/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var published bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs, stage attempts, or publications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			switch {
			case runID != "":
				attempts, err := store.Attempts(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(attempts) == 0 {
					fmt.Fprintf(out, "No stage attempts recorded for run %s\n", runID)
					return nil
				}
				rows := make([][]string, 0, len(attempts))
				for _, a := range attempts {
					rows = append(rows, []string{
						a.Stage, a.Status, strconv.Itoa(a.Attempts), dash(a.ErrorType),
						a.Duration.Round(time.Second).String(), textutil.Truncate(a.ErrorMessage, 60),
					})
				}
				writeTable(out, []string{"Stage", "Status", "Attempts", "Error Type", "Duration", "Error"}, rows, 2, 4)
			case published:
				pubs, err := store.Publications(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(pubs) == 0 {
					fmt.Fprintln(out, "No videos published yet")
					return nil
				}
				rows := make([][]string, 0, len(pubs))
				for _, p := range pubs {
					rows = append(rows, []string{
						p.PublishedAt.Local().Format("2006-01-02 15:04"), p.VideoID, textutil.Truncate(p.Title, 50), p.ProjectDir,
					})
				}
				writeTable(out, []string{"Published", "Video", "Title", "Project"}, rows)
			default:
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded yet")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, []string{
						r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID, r.Mode, r.Channel,
						textutil.Truncate(r.Topic, 40), r.Status, dash(r.ErrorType),
					})
				}
				writeTable(out, []string{"Started", "Run", "Mode", "Channel", "Topic", "Status", "Error Type"}, rows)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the stage attempts of one run")
	cmd.Flags().BoolVar(&published, "published", false, "Show published videos")
	return cmd
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

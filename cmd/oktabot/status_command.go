package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"oktabot/internal/logging"
	"oktabot/internal/project"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status [channel]",
		Short: "List projects and the last completed step",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			names := cfg.ChannelNames()
			if len(args) == 1 {
				if _, ok := cfg.Channel(args[0]); !ok {
					return fmt.Errorf("unknown channel %q (configured: %v)", args[0], names)
				}
				names = []string{args[0]}
			}

			var rows [][]string
			for _, name := range names {
				ch, _ := cfg.Channel(name)
				summaries, err := project.List(logging.NewNop(), cfg.Paths.ChannelsDir, ch.Slug)
				if err != nil {
					return err
				}
				for _, s := range summaries {
					if s.Complete() && !all {
						continue
					}
					rows = append(rows, statusRow(name, s))
				}
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				if all {
					fmt.Fprintln(out, "No projects found")
				} else {
					fmt.Fprintln(out, "No unfinished projects (use --all to include published ones)")
				}
				return nil
			}
			writeTable(out, []string{"Channel", "Project", "Progress", "Last Step", "Updated"}, rows, 2)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include published projects")
	return cmd
}

func statusRow(channel string, s project.Summary) []string {
	last := s.LastStep
	if last == "" {
		last = "-"
	}
	updated := "-"
	if !s.Updated.IsZero() {
		updated = s.Updated.Local().Format("2006-01-02 15:04")
	}
	return []string{
		channel,
		s.Name,
		fmt.Sprintf("%d/%d", len(s.Steps), len(project.Steps)),
		last,
		updated,
	}
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"oktabot/internal/assets"
	"oktabot/internal/config"
	"oktabot/internal/services/llm"
	"oktabot/internal/services/pollinations"
	"oktabot/internal/services/tts"
	"oktabot/internal/services/youtube"
	"oktabot/internal/stageexec"
	"oktabot/internal/stages"
)

// The stage subcommands are the default external programs the run command
// invokes through the configured stage templates. Each one reads its inputs
// from flags, writes its output file, and exits non-zero on failure.
func newStageCommand(ctx *commandContext) *cobra.Command {
	stageCmd := &cobra.Command{
		Use:    "stage",
		Short:  "Run a single production stage (invoked by `oktabot run`)",
		Hidden: true,
	}
	stageCmd.AddCommand(newStageScriptCommand(ctx))
	stageCmd.AddCommand(newStageDirectCommand(ctx))
	stageCmd.AddCommand(newStageNarrateCommand(ctx))
	stageCmd.AddCommand(newStageImagesCommand(ctx))
	stageCmd.AddCommand(newStageUploadCommand(ctx))
	return stageCmd
}

func stageEnv(ctx *commandContext) (*config.Config, *slog.Logger, *stages.Env, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, stages.NewEnv(cfg, logger), nil
}

func newStageScriptCommand(ctx *commandContext) *cobra.Command {
	var req stages.ScriptRequest

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Write the narration script for a topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, env, err := stageEnv(ctx)
			if err != nil {
				return err
			}
			client := llm.NewClient(llm.FromConfig(cfg.LLM))
			return env.WriteScript(cmd.Context(), client, req)
		},
	}
	cmd.Flags().StringVar(&req.Channel, "channel", "", "Channel name")
	cmd.Flags().StringVar(&req.Topic, "topic", "", "Video topic")
	cmd.Flags().IntVar(&req.TargetLength, "length", 0, "Target script length in characters")
	cmd.Flags().StringVar(&req.Output, "output", "", "Script file to write")
	for _, name := range []string{"channel", "topic", "length", "output"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newStageDirectCommand(ctx *commandContext) *cobra.Command {
	var req stages.DirectRequest

	cmd := &cobra.Command{
		Use:   "direct",
		Short: "Turn a script into a production plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, env, err := stageEnv(ctx)
			if err != nil {
				return err
			}
			client := llm.NewClient(llm.FromConfig(cfg.LLM))
			return env.Direct(cmd.Context(), client, req)
		},
	}
	cmd.Flags().StringVar(&req.Channel, "channel", "", "Channel name")
	cmd.Flags().StringVar(&req.ScriptPath, "script", "", "Script file to read")
	cmd.Flags().StringVar(&req.Output, "output", "", "Plan file to write")
	for _, name := range []string{"channel", "script", "output"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newStageNarrateCommand(ctx *commandContext) *cobra.Command {
	var req stages.NarrateRequest

	cmd := &cobra.Command{
		Use:   "narrate",
		Short: "Synthesize one narration clip per plan segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, env, err := stageEnv(ctx)
			if err != nil {
				return err
			}
			synth := tts.New(cfg.Narration, stageexec.CommandRunner{Logger: logger})
			verifier := assets.NewVerifier(assets.ThresholdsFromConfig(cfg.Assets))
			summary, err := env.Narrate(cmd.Context(), synth, verifier, req)
			if err != nil {
				return err
			}
			printSummary(cmd, "narration", summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.PlanPath, "plan", "", "Production plan")
	cmd.Flags().StringVar(&req.OutputDir, "output-dir", "", "Directory for narration clips")
	cmd.Flags().StringVar(&req.Voice, "voice", "", "Voice identifier passed to the synthesizer")
	for _, name := range []string{"plan", "output-dir"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newStageImagesCommand(ctx *commandContext) *cobra.Command {
	var req stages.ImagesRequest

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Generate one image per plan segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, env, err := stageEnv(ctx)
			if err != nil {
				return err
			}
			gen := pollinations.NewClient(pollinations.FromConfig(cfg.Images), nil)
			verifier := assets.NewVerifier(assets.ThresholdsFromConfig(cfg.Assets))
			summary, err := env.Images(cmd.Context(), gen, verifier, req)
			if err != nil {
				return err
			}
			printSummary(cmd, "images", summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.PlanPath, "plan", "", "Production plan")
	cmd.Flags().StringVar(&req.OutputDir, "output-dir", "", "Directory for images")
	for _, name := range []string{"plan", "output-dir"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newStageUploadCommand(ctx *commandContext) *cobra.Command {
	var req stages.UploadRequest

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Publish the rendered video and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, env, err := stageEnv(ctx)
			if err != nil {
				return err
			}
			httpClient, err := youtube.CredentialsFromConfig(cfg.Upload).HTTPClient(cmd.Context())
			if err != nil {
				return err
			}
			uploader, err := youtube.NewUploader(cmd.Context(), logger, option.WithHTTPClient(httpClient))
			if err != nil {
				return err
			}
			id, err := env.Upload(cmd.Context(), uploader, req)
			if err != nil {
				return err
			}
			// The pipeline reads the video id from the last stdout line.
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.VideoPath, "video", "", "Rendered video file")
	cmd.Flags().StringVar(&req.PlanPath, "plan", "", "Production plan holding the YouTube metadata")
	for _, name := range []string{"video", "plan"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func printSummary(cmd *cobra.Command, stage string, s stages.Summary) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d segment(s), %d generated, %d already valid\n", stage, s.Total, s.Generated, s.Skipped)
}

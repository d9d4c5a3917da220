package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"oktabot/internal/fileutil"
	"oktabot/internal/logging"
	"oktabot/internal/plan"
	"oktabot/internal/ratelimit"
	"oktabot/internal/services"
	"oktabot/internal/services/llm"
)

// DirectRequest describes one production-plan generation.
type DirectRequest struct {
	Channel    string
	ScriptPath string
	Output     string
}

// Direct turns a script into a production plan. The model's JSON must pass
// the structural plan check before it is written.
func (e *Env) Direct(ctx context.Context, client LLM, req DirectRequest) error {
	channel, ok := e.Config.Channel(req.Channel)
	if !ok {
		return services.Wrap(services.ErrConfiguration, "direction", "channel", fmt.Sprintf("channel %q is not configured", req.Channel), nil)
	}
	raw, err := os.ReadFile(req.ScriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	script := strings.TrimSpace(string(raw))
	if script == "" {
		return services.Wrap(services.ErrValidation, "direction", "script", "script is empty: "+req.ScriptPath, nil)
	}

	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.Logger, "direction"))
	logger.Info("generating production plan", logging.String("channel", req.Channel), logging.Int("script_length", len([]rune(script))))

	system := directionSystemPrompt(req.Channel, channel.PromptInstruction, e.Config.Upload.DefaultCategory, e.Config.Upload.DefaultPrivacy)
	user := "Script to direct:\n---\n" + script + "\n---"
	content, err := throttled(ctx, e, ratelimit.APILLM, func(ctx context.Context) (string, error) {
		return client.CompleteJSON(ctx, system, user)
	})
	if err != nil {
		return err
	}

	payload := []byte(llm.ExtractJSON(content))
	if problems := plan.Check(payload); len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "direction", "check plan",
			fmt.Sprintf("generated plan rejected (%d problem(s)): %s", len(problems), strings.Join(problems, "; ")), nil)
	}
	p, err := plan.Parse(payload)
	if err != nil {
		return services.Wrap(services.ErrValidation, "direction", "decode plan", "generated plan does not match the plan schema", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		return fmt.Errorf("format plan: %w", err)
	}
	pretty.WriteByte('\n')
	if err := fileutil.WriteFile(req.Output, pretty.Bytes()); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	logger.Info("production plan written",
		logging.String("path", req.Output),
		logging.String("title", p.YouTubeMetadata.Title),
		logging.String("narrator", p.YouTubeMetadata.Narrator),
		logging.String("music_style", p.YouTubeMetadata.MusicStyle),
		logging.Int("segments", len(p.Segments())),
	)
	return nil
}

func directionSystemPrompt(channel, instruction, category, privacy string) string {
	var b strings.Builder
	b.WriteString("You are a film director turning a narration script into a production plan for a short video.\n")
	fmt.Fprintf(&b, "Channel: %s\n", channel)
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		fmt.Fprintf(&b, "Channel style: %s\n", instruction)
	}
	b.WriteString(`
Respond with a single JSON object and nothing else. It must contain:
- "ffmpeg_settings": {"output_filename", "video_settings": {"codec", "bitrate", "fps", "resolution"}, "audio_settings": {"codec", "bitrate"}}
- "youtube_metadata": {"channel", "title", "description", "narrator", "music_style", "tags": [..], "category", "privacy_status"}
- "story_structure": {"intro", "development", "conclusion"}, each {"section_id", "paragraphs": [{"paragraph_id", "segments": [..]}]}

Every segment has "segment_id", "text" (a verbatim slice of the script), "visual_prompt",
"aspect_ratio" (one of `)
	b.WriteString(strings.Join(plan.AspectRatios, ", "))
	b.WriteString(`), "internal_effect" {"effect_type", "direction", "speed"}, and "transition_effect".
Use hierarchical ids: sections I, D, C; paragraphs I-P1; segments I-P1-S1.
The segments together must cover the whole script in order.
Visual prompts are detailed, name no real people, and include "4K ultra high definition, sharp focus".
`)
	fmt.Fprintf(&b, "Use category %q and privacy_status %q unless the content clearly needs otherwise.\n", category, privacy)
	return b.String()
}

package stages

import (
	"context"
	"fmt"
	"math"
	"strings"

	"oktabot/internal/fileutil"
	"oktabot/internal/logging"
	"oktabot/internal/ratelimit"
	"oktabot/internal/services"
)

// lengthWarnRatio is the relative deviation from the target length that is
// logged as a warning.
const lengthWarnRatio = 0.20

// LLM is the completion client the script and direction stages use.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ScriptRequest describes one script generation.
type ScriptRequest struct {
	Channel      string
	Topic        string
	TargetLength int
	Output       string
}

// WriteScript generates the narration script for a topic and writes it
// atomically to req.Output.
func (e *Env) WriteScript(ctx context.Context, client LLM, req ScriptRequest) error {
	channel, ok := e.Config.Channel(req.Channel)
	if !ok {
		return services.Wrap(services.ErrConfiguration, "scriptwriting", "channel", fmt.Sprintf("channel %q is not configured", req.Channel), nil)
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return services.Wrap(services.ErrValidation, "scriptwriting", "topic", "topic is empty", nil)
	}
	if req.TargetLength <= 0 {
		return services.Wrap(services.ErrValidation, "scriptwriting", "length", "target length must be positive", nil)
	}

	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.Logger, "scriptwriting"))
	logger.Info("generating script",
		logging.String("channel", req.Channel),
		logging.String("topic", topic),
		logging.Int("target_length", req.TargetLength),
	)

	system := scriptSystemPrompt(channel.PromptInstruction, req.TargetLength)
	user := "Topic: " + topic + ". Write the complete script."
	text, err := throttled(ctx, e, ratelimit.APILLM, func(ctx context.Context) (string, error) {
		out, err := client.Complete(ctx, system, user)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", fmt.Errorf("llm returned an empty script")
		}
		return strings.TrimSpace(out), nil
	})
	if err != nil {
		return err
	}

	length := len([]rune(text))
	if deviation := math.Abs(float64(length-req.TargetLength)) / float64(req.TargetLength); deviation > lengthWarnRatio {
		logging.WarnWithContext(logger, "script length off target", "script_length_deviation",
			logging.Int("length", length),
			logging.Int("target_length", req.TargetLength),
			logging.Float64("deviation", deviation),
			logging.String(logging.FieldImpact, "video runtime will differ from the plan"),
		)
	}
	if err := fileutil.WriteFile(req.Output, []byte(text+"\n")); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	logger.Info("script written", logging.String("path", req.Output), logging.Int("length", length))
	return nil
}

func scriptSystemPrompt(instruction string, target int) string {
	var b strings.Builder
	if instruction = strings.TrimSpace(instruction); instruction != "" {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Write a complete video narration script about the topic. Target length: about %d characters.\n", target)
	b.WriteString("Rules:\n")
	b.WriteString("1. Output only the script text. No headings, notes, or commentary.\n")
	b.WriteString("2. Structure it as an introduction, a development, and a conclusion.\n")
	b.WriteString("3. Hook the viewer in the first sentences and end on a thought-provoking note.\n")
	b.WriteString("4. No emojis or special characters. End with proper punctuation.\n")
	return b.String()
}

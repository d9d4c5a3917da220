package producer

import (
	"context"
	"fmt"
	"strings"

	"oktabot/internal/config"
	"oktabot/internal/logging"
	"oktabot/internal/project"
	"oktabot/internal/services"
)

// Prompter collects manual-mode decisions from the operator.
type Prompter interface {
	SelectChannel(ctx context.Context, channels []string) (string, error)
	// SelectResume returns the index of the project to resume, or -1 to start
	// a new one.
	SelectResume(ctx context.Context, projects []project.Summary) (int, error)
	AskTopic(ctx context.Context) (topic string, targetLength int, err error)
	ConfirmReset(ctx context.Context, proj *project.Project, mismatches []project.Mismatch) (bool, error)
}

// resolve returns the project to work on. A nil project with a nil error
// means scheduled mode has nothing to do today.
func (p *Producer) resolve(ctx context.Context) (*project.Project, error) {
	if p.guide != nil {
		return p.resolveScheduled()
	}
	return p.resolveManual(ctx)
}

func (p *Producer) resolveScheduled() (*project.Project, error) {
	task, ok := p.guide.ForDay(p.now())
	if !ok {
		return nil, nil
	}
	ch, ok := p.cfg.Channel(task.ChannelName)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "producer", "resolve",
			fmt.Sprintf("weekly guide names unknown channel %q", task.ChannelName), nil)
	}
	return project.New(p.cfg.Paths.ChannelsDir, task.ChannelName, ch.Slug, task.VideoTopic, task.TargetCharCount), nil
}

func (p *Producer) resolveManual(ctx context.Context) (*project.Project, error) {
	if p.prompter == nil {
		return nil, services.Wrap(services.ErrConfiguration, "producer", "resolve",
			"manual mode needs an interactive terminal; pass --guide for scheduled runs", nil)
	}
	names := p.cfg.ChannelNames()
	if len(names) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "producer", "resolve", "no channels configured", nil)
	}
	name, err := p.prompter.SelectChannel(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("select channel: %w", err)
	}
	ch, ok := p.cfg.Channel(name)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "producer", "resolve",
			fmt.Sprintf("unknown channel %q", name), nil)
	}

	incomplete, err := project.ScanIncomplete(p.logger, p.cfg.Paths.ChannelsDir, ch.Slug)
	if err != nil {
		return nil, err
	}
	if len(incomplete) > 0 {
		idx, err := p.prompter.SelectResume(ctx, incomplete)
		if err != nil {
			return nil, fmt.Errorf("select project: %w", err)
		}
		if idx >= 0 && idx < len(incomplete) {
			proj, err := project.Open(p.logger, incomplete[idx].Dir)
			if err != nil {
				return nil, err
			}
			if proj.Channel == "" {
				proj.Channel = name
			}
			p.logger.Info("resuming project",
				logging.String(logging.FieldEventType, "project_resume"),
				logging.String("project", proj.Name()),
				logging.String("last_step", incomplete[idx].LastStep),
			)
			return proj, nil
		}
	}

	topic, length, err := p.prompter.AskTopic(ctx)
	if err != nil {
		return nil, fmt.Errorf("ask topic: %w", err)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" || length <= 0 {
		return nil, services.Wrap(services.ErrValidation, "producer", "resolve", "topic and a positive target length are required", nil)
	}
	return project.New(p.cfg.Paths.ChannelsDir, name, ch.Slug, topic, length), nil
}

// channelFor finds the configured channel owning proj, by name or slug.
func (p *Producer) channelFor(proj *project.Project) (config.Channel, bool) {
	if ch, ok := p.cfg.Channel(proj.Channel); ok {
		return ch, true
	}
	for _, name := range p.cfg.ChannelNames() {
		if ch := p.cfg.Channels[name]; ch.Slug == proj.ChannelSlug {
			if proj.Channel == "" {
				proj.Channel = name
			}
			return ch, true
		}
	}
	return config.Channel{}, false
}

package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"oktabot/internal/assets"
	"oktabot/internal/config"
	"oktabot/internal/errclass"
	"oktabot/internal/guide"
	"oktabot/internal/ledger"
	"oktabot/internal/logging"
	"oktabot/internal/metrics"
	"oktabot/internal/notifications"
	"oktabot/internal/project"
	"oktabot/internal/retry"
	"oktabot/internal/services"
	"oktabot/internal/stageexec"
	"oktabot/internal/validation"
)

// Run modes recorded in the ledger.
const (
	ModeManual    = "manual"
	ModeScheduled = "scheduled"
)

// Gate is the pre-editing asset check.
type Gate interface {
	ValidateAll(ctx context.Context, planPath, audioDir, imageDir string) validation.Report
}

// Options configures a Producer. Config is required; every other field has a
// default derived from it.
type Options struct {
	Config     *config.Config
	ConfigPath string
	// Self is the executable substituted for {self} in stage templates.
	Self      string
	Logger    *slog.Logger
	Runner    stageexec.Runner
	Retry     *retry.Handler
	Validator Gate
	Prompter  Prompter
	// Guide selects scheduled mode when non-nil.
	Guide    guide.Guide
	Now      func() time.Time
	Ledger   *ledger.Store
	Notifier notifications.Service
	Metrics  *metrics.Recorder
	LockPath string
}

// Outcome summarizes one Run.
type Outcome struct {
	Project  *project.Project
	RunID    string
	Mode     string
	Executed []string
	Skipped  []string
	VideoID  string
	Reset    bool
	// NoTask is set when scheduled mode found nothing for today.
	NoTask bool
}

// Producer runs the pipeline for one project per call to Run.
type Producer struct {
	cfg        *config.Config
	configPath string
	self       string
	logger     *slog.Logger
	runner     stageexec.Runner
	retry      *retry.Handler
	gate       Gate
	prompter   Prompter
	guide      guide.Guide
	now        func() time.Time
	ledger     *ledger.Store
	notifier   notifications.Service
	metrics    *metrics.Recorder
	lockPath   string
}

// New builds a Producer.
func New(opts Options) (*Producer, error) {
	if opts.Config == nil {
		return nil, errors.New("producer: config is required")
	}
	cfg := opts.Config
	logger := logging.NewComponentLogger(opts.Logger, "producer")

	p := &Producer{
		cfg:        cfg,
		configPath: opts.ConfigPath,
		self:       opts.Self,
		logger:     logger,
		runner:     opts.Runner,
		retry:      opts.Retry,
		gate:       opts.Validator,
		prompter:   opts.Prompter,
		guide:      opts.Guide,
		now:        opts.Now,
		ledger:     opts.Ledger,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		lockPath:   opts.LockPath,
	}
	if p.self == "" {
		if exe, err := os.Executable(); err == nil {
			p.self = exe
		} else {
			p.self = "oktabot"
		}
	}
	if p.runner == nil {
		p.runner = stageexec.CommandRunner{Logger: opts.Logger}
	}
	if p.retry == nil {
		p.retry = retry.NewFromConfig(cfg, opts.Logger, retry.WithObserver(func(t errclass.ErrorType, _ int, _ time.Duration, _ error) {
			p.metrics.IncRetry(string(t))
		}))
	}
	if p.gate == nil {
		verifier := assets.NewVerifier(assets.ThresholdsFromConfig(cfg.Assets))
		p.gate = validation.New(verifier, validation.MusicFromConfig(cfg), opts.Logger)
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(cfg)
	}
	if p.lockPath == "" {
		p.lockPath = cfg.LockPath()
	}
	return p, nil
}

// Run resolves the project, verifies its integrity, and executes every step
// not yet completed. The returned Outcome is non-nil whenever a project was
// resolved, including on failure.
func (p *Producer) Run(ctx context.Context) (*Outcome, error) {
	unlock, err := p.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	mode := ModeManual
	if p.guide != nil {
		mode = ModeScheduled
	}
	proj, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		p.logger.Info("no task scheduled today",
			logging.String(logging.FieldEventType, "no_task"),
			logging.String("weekday", strings.ToLower(p.now().Weekday().String())),
		)
		return &Outcome{Mode: mode, NoTask: true}, nil
	}

	out := &Outcome{Project: proj, RunID: uuid.NewString(), Mode: mode}
	ctx = services.WithChannel(ctx, proj.Channel)
	ctx = services.WithProject(ctx, proj.Dir)
	ctx = services.WithRunID(ctx, out.RunID)
	logger := logging.WithContext(ctx, p.logger)

	started := p.now()
	p.startRun(ctx, logger, out, started)
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("mode", mode),
		logging.String("topic", proj.Topic),
		logging.Int("target_length", proj.TargetLength),
	)

	runErr := p.produce(ctx, logger, out)
	p.finishRun(ctx, logger, out, runErr)
	if runErr != nil {
		return out, runErr
	}
	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Any("executed", out.Executed),
		logging.Any("skipped", out.Skipped),
		logging.String("video_id", out.VideoID),
		logging.Duration("pipeline_duration", p.now().Sub(started)),
	)
	return out, nil
}

func (p *Producer) acquireLock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(p.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	lock := flock.New(p.lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire pipeline lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrBusy, p.lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release pipeline lock", logging.Error(err))
		}
	}, nil
}

// produce loads persisted state, settles integrity, and walks the steps.
func (p *Producer) produce(ctx context.Context, logger *slog.Logger, out *Outcome) error {
	proj := out.Project
	if err := proj.Ensure(); err != nil {
		return err
	}
	if _, err := os.Stat(proj.MetaPath()); errors.Is(err, os.ErrNotExist) {
		if err := proj.SaveMeta(p.now()); err != nil {
			return fmt.Errorf("save project metadata: %w", err)
		}
	}

	st := &runState{
		project:   proj,
		status:    project.LoadStatus(logger, proj.StatusPath()),
		integrity: project.LoadIntegrity(logger, proj.IntegrityPath()),
		values:    p.stageValues(proj),
		out:       out,
		logger:    logger,
	}
	if err := p.settleIntegrity(ctx, st); err != nil {
		return err
	}
	return p.runSteps(ctx, st)
}

func (p *Producer) startRun(ctx context.Context, logger *slog.Logger, out *Outcome, started time.Time) {
	if p.ledger == nil {
		return
	}
	err := p.ledger.StartRun(ctx, ledger.Run{
		ID:         out.RunID,
		Channel:    out.Project.Channel,
		ProjectDir: out.Project.Dir,
		Topic:      out.Project.Topic,
		Mode:       out.Mode,
		StartedAt:  started,
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record run start", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history will be incomplete"),
		)
	}
}

func (p *Producer) finishRun(ctx context.Context, logger *slog.Logger, out *Outcome, runErr error) {
	finished := p.now()
	status := ledger.StatusSucceeded
	result := "success"
	var errorType, message string

	var stageErr *StageError
	var gateErr *GateError
	switch {
	case runErr == nil:
		p.notify(ctx, logger, notifications.EventPipelineCompleted, notifications.Payload{
			"topic":   out.Project.Topic,
			"channel": out.Project.Channel,
			"steps":   strings.Join(out.Executed, ", "),
		})
	case errors.As(runErr, &gateErr):
		status, result = ledger.StatusFailed, "gate_failed"
		errorType, message = string(errclass.Config), runErr.Error()
		p.notify(ctx, logger, notifications.EventGateFailed, notifications.Payload{
			"project": out.Project.Name(),
			"issues":  gateErr.Issues,
		})
	case errors.As(runErr, &stageErr):
		status, result = ledger.StatusFailed, "failed"
		errorType, message = string(stageErr.Type), runErr.Error()
		p.notify(ctx, logger, notifications.EventError, notifications.Payload{
			"context": stageErr.Step + " stage",
			"error":   stageErr.Err.Error(),
		})
	case errors.Is(runErr, ErrResetDeclined):
		status, result = ledger.StatusSkipped, "declined"
		message = runErr.Error()
	default:
		status, result = ledger.StatusFailed, "failed"
		message = runErr.Error()
		p.notify(ctx, logger, notifications.EventError, notifications.Payload{
			"context": out.Project.Name(),
			"error":   message,
		})
	}

	if runErr != nil {
		logging.ErrorWithContext(logger, "pipeline failed", "pipeline_failed",
			logging.String(logging.FieldErrorType, errorType),
			logging.Error(runErr),
		)
	}
	p.metrics.RecordPipeline(result, finished)
	if p.ledger == nil {
		return
	}
	if err := p.ledger.FinishRun(ctx, out.RunID, status, errorType, message, finished); err != nil {
		logging.WarnWithContext(logger, "failed to record run result", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history will be incomplete"),
		)
	}
}

// notify publishes a notification. Delivery failures never fail the run.
func (p *Producer) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	err := p.notifier.Publish(ctx, event, payload)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug("run cancelled, notification not sent", logging.String("event", string(event)))
		return
	}
	logging.WarnWithContext(logger, "notification delivery failed", "notification_failed",
		logging.String("event", string(event)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the ntfy topic and network access"),
		logging.String(logging.FieldImpact, "pipeline continues without this notification"),
	)
}

package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"oktabot/internal/config"
	"oktabot/internal/errclass"
	"oktabot/internal/fileutil"
	"oktabot/internal/ledger"
	"oktabot/internal/logging"
	"oktabot/internal/notifications"
	"oktabot/internal/plan"
	"oktabot/internal/project"
	"oktabot/internal/retry"
	"oktabot/internal/services"
	"oktabot/internal/stageexec"
	"oktabot/internal/validation"
)

// Sub-stage names used for logs, metrics, and the ledger. Asset production
// runs two commands under one persisted step.
const (
	stageNarration = "narration"
	stageImages    = "images"
	stageGate      = "gate"
)

type runState struct {
	project   *project.Project
	status    *project.StepStatus
	integrity *project.IntegrityRecord
	values    map[string]string
	out       *Outcome
	logger    *slog.Logger
}

// step is one persisted pipeline step. run returns the files whose hashes
// prove the step's output.
type step struct {
	name string
	run  func(ctx context.Context, st *runState) ([]string, error)
}

func (p *Producer) steps() []step {
	return []step{
		{name: project.StepScriptwriting, run: p.runScriptwriting},
		{name: project.StepDirection, run: p.runDirection},
		{name: project.StepAssetProduction, run: p.runAssetProduction},
		{name: project.StepEditing, run: p.runEditing},
		{name: project.StepUpload, run: p.runUpload},
	}
}

func (p *Producer) runSteps(ctx context.Context, st *runState) error {
	for _, s := range p.steps() {
		if s.name == project.StepEditing {
			if err := p.runGate(ctx, st); err != nil {
				return err
			}
		}
		if st.status.IsDone(s.name) {
			st.logger.Info("step already complete; skipping", logging.String(logging.FieldStage, s.name))
			st.out.Skipped = append(st.out.Skipped, s.name)
			continue
		}
		stepCtx := services.WithStage(ctx, s.name)
		outputs, err := s.run(stepCtx, st)
		if err != nil {
			return err
		}
		if err := p.commit(st, s.name, outputs); err != nil {
			return err
		}
		st.out.Executed = append(st.out.Executed, s.name)
	}
	return nil
}

// commit marks the step done and records output hashes, then persists both
// records atomically.
func (p *Producer) commit(st *runState, name string, outputs []string) error {
	for _, path := range outputs {
		hash, err := fileutil.HashFile(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}
		if hash == "" {
			continue
		}
		st.integrity.Record(st.project.Rel(path), hash)
	}
	st.status.MarkDone(name)
	if err := project.SaveIntegrity(st.project.IntegrityPath(), st.integrity); err != nil {
		return fmt.Errorf("save integrity: %w", err)
	}
	if err := project.SaveStatus(st.project.StatusPath(), st.status); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	st.logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.String(logging.FieldStage, name),
		logging.Int("hashed_files", len(outputs)),
	)
	return nil
}

func (p *Producer) runScriptwriting(ctx context.Context, st *runState) ([]string, error) {
	out := st.project.ScriptPath()
	if _, err := p.invoke(ctx, st, project.StepScriptwriting, p.cfg.Stages.Scriptwriting, out); err != nil {
		return nil, err
	}
	return []string{out}, nil
}

func (p *Producer) runDirection(ctx context.Context, st *runState) ([]string, error) {
	out := st.project.PlanPath()
	if _, err := p.invoke(ctx, st, project.StepDirection, p.cfg.Stages.Direction, out); err != nil {
		return nil, err
	}
	return []string{out}, nil
}

func (p *Producer) runAssetProduction(ctx context.Context, st *runState) ([]string, error) {
	for _, dir := range []string{st.project.AudioDir(), st.project.ImageDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create asset folder: %w", err)
		}
	}
	if _, err := p.invoke(services.WithStage(ctx, stageNarration), st, stageNarration, p.cfg.Stages.Narration, ""); err != nil {
		return nil, err
	}
	if _, err := p.invoke(services.WithStage(ctx, stageImages), st, stageImages, p.cfg.Stages.Images, ""); err != nil {
		return nil, err
	}
	outputs, err := p.assetOutputs(st.project)
	if err != nil {
		return nil, &StageError{Step: project.StepAssetProduction, Type: errclass.Config, Attempts: 1, Err: err}
	}
	return outputs, nil
}

// assetOutputs lists the asset files to hash according to [integrity].scope.
func (p *Producer) assetOutputs(proj *project.Project) ([]string, error) {
	if p.cfg.Integrity.Scope == config.IntegrityScopeFolder {
		var outputs []string
		for _, g := range []struct{ dir, ext string }{{proj.AudioDir(), ".wav"}, {proj.ImageDir(), ".png"}} {
			matches, err := filepath.Glob(filepath.Join(g.dir, "*"+g.ext))
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, matches...)
		}
		return outputs, nil
	}

	pl, err := plan.Load(proj.PlanPath())
	if err != nil {
		return nil, err
	}
	required := pl.RequiredAssets()
	outputs := make([]string, 0, len(required.Audio)+len(required.Images))
	for _, name := range required.Audio {
		outputs = append(outputs, filepath.Join(proj.AudioDir(), name))
	}
	for _, name := range required.Images {
		outputs = append(outputs, filepath.Join(proj.ImageDir(), name))
	}
	return outputs, nil
}

func (p *Producer) runGate(ctx context.Context, st *runState) error {
	ctx = services.WithStage(ctx, stageGate)
	started := p.now()
	report := p.gate.ValidateAll(ctx, st.project.PlanPath(), st.project.AudioDir(), st.project.ImageDir())

	counts := map[string]int{}
	for _, kind := range []validation.Kind{validation.KindPlan, validation.KindAudio, validation.KindImage, validation.KindMusic} {
		counts[string(kind)] = report.Count(kind)
	}
	p.metrics.SetGateIssues(counts)

	if report.OK() {
		p.metrics.ObserveStage(stageGate, "success", p.now().Sub(started))
		st.logger.Info("asset validation passed", logging.String(logging.FieldStage, stageGate))
		return nil
	}
	p.metrics.ObserveStage(stageGate, "failed", p.now().Sub(started))
	gateErr := &GateError{Issues: report.Messages(), Hints: validation.SuggestRecovery(report.Issues)}
	p.recordAttempt(ctx, st, stageGate, started, 1, gateErr, errclass.Config)
	return gateErr
}

func (p *Producer) runEditing(ctx context.Context, st *runState) ([]string, error) {
	out := st.project.VideoPath()
	if _, err := p.invoke(ctx, st, project.StepEditing, p.cfg.Stages.Editing, out); err != nil {
		return nil, err
	}
	return []string{out}, nil
}

// runUpload publishes the video. The stage prints the video id as its last
// stdout line; nothing is hashed afterwards.
func (p *Producer) runUpload(ctx context.Context, st *runState) ([]string, error) {
	res, err := p.invoke(ctx, st, project.StepUpload, p.cfg.Stages.Upload, "")
	if err != nil {
		return nil, err
	}
	videoID := res.LastLine()
	st.out.VideoID = videoID
	if videoID == "" {
		logging.WarnWithContext(st.logger, "upload stage printed no video id", "upload_no_id",
			logging.String(logging.FieldErrorHint, "make the upload command print the video id on its last stdout line"),
			logging.String(logging.FieldImpact, "publication is not recorded in history"),
		)
		return nil, nil
	}

	title := st.project.Topic
	if pl, err := plan.Load(st.project.PlanPath()); err == nil && strings.TrimSpace(pl.YouTubeMetadata.Title) != "" {
		title = pl.YouTubeMetadata.Title
	}
	if p.ledger != nil {
		err := p.ledger.RecordPublication(ctx, ledger.Publication{
			RunID:       st.out.RunID,
			ProjectDir:  st.project.Dir,
			VideoID:     videoID,
			Title:       title,
			PublishedAt: p.now(),
		})
		if err != nil {
			logging.WarnWithContext(st.logger, "failed to record publication", "ledger_write_failed", logging.Error(err))
		}
	}
	p.notify(ctx, st.logger, notifications.EventVideoPublished, notifications.Payload{
		"title":   title,
		"videoID": videoID,
	})
	st.logger.Info("video published",
		logging.String(logging.FieldEventType, "video_published"),
		logging.String("video_id", videoID),
	)
	return nil, nil
}

// invoke runs one stage command under the retry handler. When expected is
// set, the command must leave a non-empty file there.
func (p *Producer) invoke(ctx context.Context, st *runState, name string, stage config.Stage, expected string) (stageexec.Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, name),
	)
	started := p.now()
	attempts := 0
	res, err := retry.Do(ctx, p.retry, func(ctx context.Context) (stageexec.Result, error) {
		attempts++
		res, err := p.runner.Run(ctx, stageexec.Invocation{
			Stage:   name,
			Command: stage.Command,
			Values:  st.values,
			Timeout: stage.Timeout(),
			Dir:     st.project.Dir,
		})
		if err != nil {
			return res, err
		}
		if expected != "" {
			if info, statErr := os.Stat(expected); statErr != nil || info.Size() == 0 {
				return res, services.Wrap(services.ErrExternalTool, name, "output",
					fmt.Sprintf("stage exited cleanly but left no output at %s", st.project.Rel(expected)), nil)
			}
		}
		return res, nil
	})
	if err != nil {
		stageErr := &StageError{Step: name, Type: errclass.CodeBug, Attempts: attempts, Err: err}
		var retryErr *retry.Error
		if errors.As(err, &retryErr) {
			stageErr.Type, stageErr.Attempts, stageErr.Err = retryErr.Type, retryErr.Attempts, retryErr.Err
		}
		logging.ErrorWithContext(logger, "stage failed", "stage_failed",
			logging.String(logging.FieldStage, name),
			logging.String(logging.FieldErrorType, string(stageErr.Type)),
			logging.Int("attempts", stageErr.Attempts),
			logging.Error(stageErr.Err),
		)
		p.metrics.ObserveStage(name, "failed", p.now().Sub(started))
		p.recordAttempt(ctx, st, name, started, stageErr.Attempts, stageErr.Err, stageErr.Type)
		return res, stageErr
	}
	p.metrics.ObserveStage(name, "success", p.now().Sub(started))
	p.recordAttempt(ctx, st, name, started, attempts, nil, "")
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, name),
		logging.Int("attempts", attempts),
		logging.Duration("stage_duration", p.now().Sub(started)),
	)
	return res, nil
}

func (p *Producer) recordAttempt(ctx context.Context, st *runState, name string, started time.Time, attempts int, stageErr error, errType errclass.ErrorType) {
	if p.ledger == nil {
		return
	}
	a := ledger.Attempt{
		RunID:     st.out.RunID,
		Stage:     name,
		Status:    ledger.StatusSucceeded,
		Attempts:  attempts,
		Duration:  p.now().Sub(started),
		StartedAt: started,
	}
	if stageErr != nil {
		a.Status = ledger.StatusFailed
		a.ErrorType = string(errType)
		a.ErrorMessage = stageErr.Error()
	}
	if err := p.ledger.RecordAttempt(ctx, a); err != nil {
		logging.WarnWithContext(st.logger, "failed to record stage attempt", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldStage, name),
		)
	}
}

// stageValues fills the placeholders available to every stage template.
func (p *Producer) stageValues(proj *project.Project) map[string]string {
	voice := p.cfg.Narration.DefaultVoice
	if ch, ok := p.channelFor(proj); ok && strings.TrimSpace(ch.Voice) != "" {
		voice = ch.Voice
	}
	return map[string]string{
		"self":          p.self,
		"config":        p.configPath,
		"channel":       proj.Channel,
		"topic":         proj.Topic,
		"target_length": strconv.Itoa(proj.TargetLength),
		"voice":         voice,
		"project":       proj.Dir,
		"script":        proj.ScriptPath(),
		"plan":          proj.PlanPath(),
		"audio_dir":     proj.AudioDir(),
		"image_dir":     proj.ImageDir(),
		"music_dir":     p.cfg.Paths.MusicDir,
		"video":         proj.VideoPath(),
	}
}

package producer

import (
	"context"
	"fmt"

	"oktabot/internal/fileutil"
	"oktabot/internal/logging"
	"oktabot/internal/project"
)

// settleIntegrity checks recorded hashes of a resumed project. Any mismatch
// resets the project in scheduled mode; manual mode asks first.
func (p *Producer) settleIntegrity(ctx context.Context, st *runState) error {
	if st.status.Empty() {
		return nil
	}
	mismatches := st.integrity.Verify(st.project.Abs, fileutil.HashFile)
	if len(mismatches) == 0 {
		st.logger.Debug("integrity verified", logging.Int("files", st.integrity.Len()))
		return nil
	}

	attrs := []logging.Attr{
		logging.Int("mismatches", len(mismatches)),
		logging.String("first_path", mismatches[0].Path),
		logging.String("first_reason", mismatches[0].Reason),
		logging.String(logging.FieldImpact, "generated files will be discarded"),
	}
	if p.guide == nil {
		ok, err := p.prompter.ConfirmReset(ctx, st.project, mismatches)
		if err != nil {
			return fmt.Errorf("confirm reset: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %d file(s) changed since they were recorded", ErrResetDeclined, len(mismatches))
		}
	}
	logging.WarnWithContext(st.logger, "project files changed since last run; resetting", "integrity_reset",
		append(attrs, logging.String(logging.FieldErrorHint, "do not edit generated files between runs"))...,
	)
	return p.reset(st)
}

// reset wipes the project directory and persists empty records.
func (p *Producer) reset(st *runState) error {
	if err := st.project.Reset(); err != nil {
		return err
	}
	st.status.Clear()
	st.integrity.Clear()
	st.out.Reset = true
	if err := st.project.SaveMeta(p.now()); err != nil {
		return fmt.Errorf("save project metadata: %w", err)
	}
	if err := project.SaveStatus(st.project.StatusPath(), st.status); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	if err := project.SaveIntegrity(st.project.IntegrityPath(), st.integrity); err != nil {
		return fmt.Errorf("save integrity: %w", err)
	}
	return nil
}

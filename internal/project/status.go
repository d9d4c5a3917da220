package project

import (
	"log/slog"
	"slices"

	"oktabot/internal/fileutil"
)

// Pipeline step names as persisted in status.json.
const (
	StepScriptwriting   = "scriptwriting"
	StepDirection       = "direction"
	StepAssetProduction = "asset_production"
	StepEditing         = "editing"
	StepUpload          = "upload"
)

// Steps lists the persisted steps in pipeline order. The validation gate is
// deliberately absent: it runs on every invocation.
var Steps = []string{StepScriptwriting, StepDirection, StepAssetProduction, StepEditing, StepUpload}

// StepStatus is the ordered, append-only set of completed steps.
type StepStatus struct {
	completed []string
}

type statusDocument struct {
	CompletedSteps []string `json:"completed_steps"`
}

// IsDone reports whether step has been completed.
func (s *StepStatus) IsDone(step string) bool {
	return slices.Contains(s.completed, step)
}

// MarkDone appends step when absent. It reports whether the set changed.
func (s *StepStatus) MarkDone(step string) bool {
	if s.IsDone(step) {
		return false
	}
	s.completed = append(s.completed, step)
	return true
}

// Steps returns a copy of the completed steps in completion order.
func (s *StepStatus) Steps() []string {
	return slices.Clone(s.completed)
}

// Last returns the most recently completed step, or "" when empty.
func (s *StepStatus) Last() string {
	if len(s.completed) == 0 {
		return ""
	}
	return s.completed[len(s.completed)-1]
}

// Empty reports whether no step has completed.
func (s *StepStatus) Empty() bool { return len(s.completed) == 0 }

// Clear forgets every completed step.
func (s *StepStatus) Clear() { s.completed = nil }

// LoadStatus reads status.json; a missing or corrupt file yields an empty set.
func LoadStatus(logger *slog.Logger, path string) *StepStatus {
	var doc statusDocument
	if !fileutil.ReadJSON(logger, path, &doc) {
		return &StepStatus{}
	}
	status := &StepStatus{}
	for _, step := range doc.CompletedSteps {
		status.MarkDone(step)
	}
	return status
}

// SaveStatus writes status.json atomically.
func SaveStatus(path string, status *StepStatus) error {
	steps := status.Steps()
	if steps == nil {
		steps = []string{}
	}
	return fileutil.WriteJSON(path, statusDocument{CompletedSteps: steps})
}

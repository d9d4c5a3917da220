// Package deps checks that the external binaries oktabot shells out to are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"oktabot/internal/config"
)

// selfPlaceholder marks stage commands that re-enter the oktabot binary.
const selfPlaceholder = "{self}"

// Requirement defines an external dependency oktabot relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not installed", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

// Requirements lists the binaries the configured pipeline needs: one per
// stage command that does not re-enter oktabot, the narration engine, and
// ffprobe.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	stages := []struct {
		name  string
		stage config.Stage
	}{
		{"scriptwriting", cfg.Stages.Scriptwriting},
		{"direction", cfg.Stages.Direction},
		{"narration", cfg.Stages.Narration},
		{"images", cfg.Stages.Images},
		{"editing", cfg.Stages.Editing},
		{"upload", cfg.Stages.Upload},
	}
	var reqs []Requirement
	seen := make(map[string]bool)
	add := func(req Requirement) {
		if req.Command == "" || seen[req.Command] {
			return
		}
		seen[req.Command] = true
		reqs = append(reqs, req)
	}
	for _, s := range stages {
		bin := CommandBinary(s.stage.Command)
		if bin == selfPlaceholder {
			continue
		}
		add(Requirement{
			Name:        s.name + " stage",
			Command:     bin,
			Description: fmt.Sprintf("Runs the %s step", s.name),
		})
	}
	add(Requirement{
		Name:        "narration engine",
		Command:     CommandBinary(cfg.Narration.Command),
		Description: "Synthesizes segment narration for the built-in narrate stage",
	})
	add(Requirement{
		Name:        "FFprobe",
		Command:     cfg.FFprobeBinary(),
		Description: "Required for audio duration checks",
	})
	return reqs
}

// CommandBinary returns the first token of a command template.
func CommandBinary(template string) string {
	fields := strings.Fields(template)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

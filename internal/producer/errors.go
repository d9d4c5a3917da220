package producer

import (
	"errors"
	"fmt"
	"strings"

	"oktabot/internal/errclass"
)

// ErrResetDeclined is returned when the operator refuses an integrity reset.
var ErrResetDeclined = errors.New("integrity reset declined")

// ErrBusy is returned when another pipeline holds the run lock.
var ErrBusy = errors.New("another pipeline is already running")

// StageError reports a step that failed after retries.
type StageError struct {
	Step     string
	Type     errclass.ErrorType
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s error after %d attempt(s)): %v", e.Step, e.Type, e.Attempts, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// GateError reports a failed validation gate. Hints are advisory.
type GateError struct {
	Issues []string
	Hints  []string
}

func (e *GateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "asset validation failed with %d issue(s)", len(e.Issues))
	for _, issue := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(issue)
	}
	if len(e.Hints) > 0 {
		b.WriteString("\nsuggested recovery:")
		for _, hint := range e.Hints {
			b.WriteString("\n  * ")
			b.WriteString(hint)
		}
	}
	return b.String()
}

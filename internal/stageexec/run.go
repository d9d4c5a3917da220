// Package stageexec runs pipeline stages as external programs. A stage is a
// whitespace-separated command template whose {placeholders} are filled per
// token, so substituted values never split into extra arguments.
package stageexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"oktabot/internal/logging"
	"oktabot/internal/services"
)

const stderrTailLines = 20

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Invocation describes one stage run.
type Invocation struct {
	Stage   string
	Command string
	Values  map[string]string
	Timeout time.Duration
	Dir     string
}

// Result captures what a stage printed.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// LastLine returns the final non-empty stdout line.
func (r Result) LastLine() string {
	lines := strings.Split(strings.TrimSpace(r.Stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// Runner executes stage invocations.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// Expand splits template on whitespace and substitutes placeholders in each
// token. Unknown placeholders are an error.
func Expand(template string, values map[string]string) ([]string, error) {
	tokens := strings.Fields(template)
	if len(tokens) == 0 {
		return nil, errors.New("empty command template")
	}
	var unknown []string
	args := make([]string, 0, len(tokens))
	for _, token := range tokens {
		expanded := placeholderPattern.ReplaceAllStringFunc(token, func(match string) string {
			key := match[1 : len(match)-1]
			value, ok := values[key]
			if !ok {
				unknown = append(unknown, match)
				return match
			}
			return value
		})
		args = append(args, expanded)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown placeholder(s) %s", strings.Join(unknown, ", "))
	}
	return args, nil
}

// CommandRunner runs invocations with os/exec.
type CommandRunner struct {
	Logger *slog.Logger
}

// Run expands the template, resolves the binary, and waits for it under the
// invocation timeout. Stdout lines are logged at debug level; a failure
// carries the tail of stderr so callers can classify it.
func (r CommandRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "stageexec"))
	args, err := Expand(inv.Command, inv.Values)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, inv.Stage, "expand command", err.Error(), nil)
	}
	binary, err := exec.LookPath(args[0])
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, inv.Stage, "lookup", fmt.Sprintf("stage binary %q is not installed or not on PATH", args[0]), nil)
	}

	runCtx := ctx
	cancel := func() {}
	if inv.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
	}
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, binary, args[1:]...) //nolint:gosec
	cmd.Dir = inv.Dir
	cmd.WaitDelay = 2 * time.Second
	cmd.Stdout = &lineWriter{buf: &stdout, onLine: func(line string) {
		logger.Debug("stage output", logging.String("line", line))
	}}
	cmd.Stderr = &stderr

	logger.Debug("stage command starting",
		logging.String(logging.FieldEventType, "stage_command_start"),
		logging.String("binary", binary),
		logging.Any("args", args[1:]),
		logging.Duration("timeout", inv.Timeout),
	)
	started := time.Now()
	waitErr := cmd.Run()

	result := Result{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(started)}
	if waitErr == nil {
		return result, nil
	}
	tail := tailLines(result.Stderr, stderrTailLines)
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return result, services.Wrap(services.ErrTransient, inv.Stage, "run", "cancelled", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return result, services.Wrap(services.ErrTimeout, inv.Stage, "run", fmt.Sprintf("timeout after %s", inv.Timeout), nil)
	}
	message := fmt.Sprintf("%s exited with error", args[0])
	if tail != "" {
		message += ": " + tail
	}
	return result, services.Wrap(services.ErrExternalTool, inv.Stage, "run", message, waitErr)
}

// lineWriter buffers everything written and reports complete lines.
type lineWriter struct {
	buf     *bytes.Buffer
	pending []byte
	onLine  func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	w.pending = append(w.pending, p...)
	for {
		idx := bytes.IndexByte(w.pending, '\n')
		if idx < 0 {
			break
		}
		if w.onLine != nil {
			w.onLine(string(bytes.TrimRight(w.pending[:idx], "\r")))
		}
		w.pending = w.pending[idx+1:]
	}
	return len(p), nil
}

func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}

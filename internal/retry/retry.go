// Package retry runs operations under per-error-type retry policies.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"oktabot/internal/errclass"
	"oktabot/internal/logging"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 30 * time.Second
)

// Policy configures retries for one error type. MaxRetries is the total number
// of attempts, so a value of 1 disables retrying.
type Policy struct {
	MaxRetries  int
	BaseDelay   time.Duration
	Exponential bool
}

// DefaultPolicy is used when no policy is configured for a type and no system
// policy exists to fall back to.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: defaultMaxRetries, BaseDelay: defaultBaseDelay, Exponential: true}
}

// Delay returns the wait before the next attempt, where attempt is the
// zero-based index of the attempt that just failed.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if !p.Exponential {
		return p.BaseDelay
	}
	if attempt > 30 {
		attempt = 30
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt))
}

// Policies maps error types to their policy.
type Policies map[errclass.ErrorType]Policy

// For returns the policy for t, falling back to the system policy and then to
// DefaultPolicy.
func (p Policies) For(t errclass.ErrorType) Policy {
	if policy, ok := p[t]; ok {
		return policy
	}
	if policy, ok := p[errclass.System]; ok {
		return policy
	}
	return DefaultPolicy()
}

// Error is returned when an operation fails permanently.
type Error struct {
	Type     errclass.ErrorType
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error after %d attempt(s): %v", e.Type, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Observer is notified before each backoff sleep.
type Observer func(t errclass.ErrorType, attempt int, delay time.Duration, err error)

// Handler executes operations with classification-driven retries. Handlers
// keep no state between calls.
type Handler struct {
	classifier *errclass.Classifier
	policies   Policies
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
	observer   Observer
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(h *Handler) {
		if sleep != nil {
			h.sleep = sleep
		}
	}
}

// WithObserver registers a callback invoked before each backoff sleep.
func WithObserver(observer Observer) Option {
	return func(h *Handler) {
		h.observer = observer
	}
}

// NewHandler builds a handler. A nil classifier uses the default keywords.
func NewHandler(classifier *errclass.Classifier, policies Policies, opts ...Option) *Handler {
	if classifier == nil {
		classifier = errclass.New(errclass.Keywords{})
	}
	h := &Handler{
		classifier: classifier,
		policies:   policies,
		logger:     logging.NewNop(),
		sleep:      SleepWithContext,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Execute runs op until it succeeds, fails with a non-retryable error type, or
// exhausts the attempts allowed for the failing type.
func (h *Handler) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, h, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is the value-returning form of Handler.Execute.
func Do[T any](ctx context.Context, h *Handler, op func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		errType := h.classifier.ClassifyError(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, &Error{Type: errType, Attempts: attempt + 1, Err: err}
		}
		if !errclass.IsRetryable(errType) {
			return zero, &Error{Type: errType, Attempts: attempt + 1, Err: err}
		}

		policy := h.policies.For(errType)
		maxAttempts := policy.MaxRetries
		if maxAttempts <= 0 {
			maxAttempts = 1
		}
		if attempt+1 >= maxAttempts {
			return zero, &Error{Type: errType, Attempts: attempt + 1, Err: err}
		}

		delay := policy.Delay(attempt)
		logging.WarnWithContext(
			logging.WithContext(ctx, h.logger),
			"operation failed; retrying",
			"retry_scheduled",
			logging.String(logging.FieldErrorType, string(errType)),
			logging.Int("attempt", attempt+1),
			logging.Int("max_attempts", maxAttempts),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "transient failure; waiting before the next attempt"),
			logging.String(logging.FieldImpact, "pipeline paused during backoff"),
		)
		if h.observer != nil {
			h.observer(errType, attempt+1, delay, err)
		}
		if sleepErr := h.sleep(ctx, delay); sleepErr != nil {
			return zero, &Error{Type: errType, Attempts: attempt + 1, Err: errors.Join(err, sleepErr)}
		}
	}
}

// SleepWithContext blocks for delay or until ctx is done.
func SleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

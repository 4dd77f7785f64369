package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
)

// Config controls the retry state machine.
type Config struct {
	// MaxAttempts is the total attempt budget including the first try.
	// Default: 3.
	MaxAttempts int

	// BaseDelay is the backoff before the first retry; it doubles (or
	// scales by Multiplier) on each subsequent retry. Default: 2s.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff wait. Default: 30s.
	MaxDelay time.Duration

	// Multiplier scales the delay between attempts. Default: 2.0.
	Multiplier float64

	// JitterFraction randomizes each delay by ±fraction. Default: 0, so
	// the nth delay is exactly BaseDelay x Multiplier^(n-1).
	JitterFraction float64
}

// DefaultConfig returns the standard retry budget for source calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	return c
}

// Runner executes source calls under the retry state machine:
// Idle -> Attempting -> {Succeeded | Backoff -> Attempting | Exhausted}.
type Runner struct {
	cfg  Config
	name string
}

// NewRunner creates a Runner for a named stage.
func NewRunner(name string, cfg Config) *Runner {
	return &Runner{cfg: cfg.withDefaults(), name: name}
}

// Attempt describes one pass of the retry loop to the task. UseBackup is
// set from the second attempt onward when a backup credential exists; the
// stage selects its concrete credential sets from it.
type Attempt struct {
	Number    int
	UseBackup bool
}

// Task is one attempt of an external call.
type Task func(ctx context.Context, attempt Attempt) error

// Execute runs task under the retry budget. The returned RetryContext
// always reflects every attempt and backoff wait, whether or not the call
// ultimately succeeded; it is forwarded to scoring as a signal.
//
// Non-recoverable errors exhaust the state machine immediately without
// consuming the remaining budget. A fully exhausted budget yields a
// terminal SYSTEM_FAILURE.
func (r *Runner) Execute(ctx context.Context, hasBackup bool, task Task) (model.RetryContext, error) {
	rc := model.RetryContext{MaxAttempts: r.cfg.MaxAttempts}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		rc.Attempts = attempt
		useBackup := attempt >= 2 && hasBackup
		if useBackup {
			rc.UsedBackup = true
		}

		lastErr = task(ctx, Attempt{Number: attempt, UseBackup: useBackup})
		if lastErr == nil {
			return rc, nil
		}
		rc.LastError = lastErr.Error()

		if ctx.Err() != nil {
			return rc, WithCode(CodeSystemFailure, lastErr)
		}

		if !Recoverable(lastErr, hasBackup) {
			// Attempting -> Exhausted, no budget consumed on retries.
			code := CodeOf(lastErr)
			if code == CodeAuthError {
				code = CodeNonRecoverable
			}
			return rc, WithCode(code, lastErr)
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.backoff(attempt)
		rc.Delays = append(rc.Delays, delay)
		zap.L().Warn("retrying after backoff",
			zap.String("stage", r.name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Bool("backup_next", hasBackup),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return rc, WithCode(CodeSystemFailure, ctx.Err())
		case <-timer.C:
		}
	}

	return rc, WithCode(CodeSystemFailure, lastErr)
}

// backoff returns the wait after the given attempt (1-based):
// BaseDelay x Multiplier^(attempt-1), capped at MaxDelay.
func (r *Runner) backoff(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Multiplier, float64(attempt-1))
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if r.cfg.JitterFraction > 0 {
		span := d * r.cfg.JitterFraction
		d += (rand.Float64()*2 - 1) * span
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// ExecuteVal is Execute for tasks that return a value.
func ExecuteVal[T any](ctx context.Context, r *Runner, hasBackup bool, task func(ctx context.Context, attempt Attempt) (T, error)) (T, model.RetryContext, error) {
	var out T
	rc, err := r.Execute(ctx, hasBackup, func(ctx context.Context, a Attempt) error {
		v, taskErr := task(ctx, a)
		if taskErr != nil {
			return taskErr
		}
		out = v
		return nil
	})
	return out, rc, err
}

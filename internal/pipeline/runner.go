package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sublingo/internal/logging"
	"sublingo/internal/services"
)

// Runner applies the uniform execution policy around every step: skip
// propagation, retry on transient errors, and conversion of failures into
// recorded results. RunStep never returns an error; every outcome lands in
// the state.
type Runner struct {
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
	sleep       func(time.Duration)
}

// NewRunner constructs a runner. maxAttempts bounds the total tries per
// step (minimum 1); retryDelay is the fixed pause between attempts.
func NewRunner(maxAttempts int, retryDelay time.Duration, logger *slog.Logger) *Runner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if retryDelay < 0 {
		retryDelay = 0
	}
	return &Runner{
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		sleep:       time.Sleep,
	}
}

// WithSleep overrides the inter-attempt pause, for tests.
func (r *Runner) WithSleep(sleep func(time.Duration)) {
	if r != nil && sleep != nil {
		r.sleep = sleep
	}
}

// RunStep executes one step against the state, attaching exactly one
// StepResult regardless of outcome.
func (r *Runner) RunStep(ctx context.Context, step Step, state *State) {
	name := step.Name()

	if !state.ShouldContinue {
		state.setResult(name, &StepResult{
			StepName:  name,
			Status:    StatusSkipped,
			CreatedAt: time.Now().UTC(),
		})
		if r.logger != nil {
			r.logger.Debug("step skipped after earlier failure",
				logging.String(logging.FieldStep, name),
				logging.String(logging.FieldRunID, state.RunID),
			)
		}
		return
	}

	state.CurrentStep = name
	state.RetryCount = 0
	ctx = services.WithStep(ctx, name)
	started := time.Now()

	// Per-run overrides in the effective config take precedence over the
	// runner's construction-time policy.
	maxAttempts := r.maxAttempts
	if state.Config.Retry.MaxRetries > 0 {
		maxAttempts = state.Config.Retry.MaxRetries
	}
	retryDelay := r.retryDelay
	if state.Config.Retry.RetryDelaySeconds > 0 {
		retryDelay = state.Config.RetryDelay()
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		state.RetryCount = attempt - 1
		err = step.Execute(ctx, state)
		if err == nil {
			break
		}
		if !services.IsRetryable(err) || attempt == maxAttempts {
			break
		}
		if r.logger != nil {
			r.logger.Warn("step failed, retrying",
				logging.String(logging.FieldStep, name),
				logging.String(logging.FieldRunID, state.RunID),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", maxAttempts),
				logging.Error(err),
			)
		}
		r.sleep(retryDelay)
	}

	duration := time.Since(started)
	state.CurrentStep = ""

	if err != nil {
		message := services.Message(err)
		state.setResult(name, &StepResult{
			StepName:     name,
			Status:       StatusFailed,
			ErrorMessage: message,
			Duration:     duration,
			CreatedAt:    time.Now().UTC(),
		})
		state.ShouldContinue = false
		state.AddError(fmt.Sprintf("%s: %s", name, message))
		if r.logger != nil {
			r.logger.Error("step failed",
				logging.String(logging.FieldStep, name),
				logging.String(logging.FieldRunID, state.RunID),
				logging.Duration("duration", duration),
				logging.Error(err),
			)
		}
		return
	}

	result := &StepResult{
		StepName:   name,
		Status:     StatusCompleted,
		OutputPath: state.artifactFor(name),
		Duration:   duration,
		CreatedAt:  time.Now().UTC(),
	}
	if provider, ok := step.(MetadataProvider); ok {
		result.Metadata = provider.Metadata(state)
	}
	state.setResult(name, result)

	if r.logger != nil {
		r.logger.Info("step completed",
			logging.String(logging.FieldStep, name),
			logging.String(logging.FieldRunID, state.RunID),
			logging.Duration("duration", duration),
		)
	}
}

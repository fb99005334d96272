// Package pipeline runs an ordered sequence of named steps with fail-fast
// semantics. A step failure (or an external cancellation) short-circuits the
// remaining steps and invokes a cleanup hook before the aggregate result is
// returned, mirroring shell trap-on-error behavior in an explicit,
// result-propagating form.
package pipeline

import (
	"context"
	"fmt"

	"github.com/ragstack/ragctl/internal/logging"
)

// Policy decides what a step failure does to the rest of the pipeline.
type Policy int

const (
	// Fatal aborts the pipeline on failure.
	Fatal Policy = iota
	// WarnOnly records a warning and continues. Used for best-effort steps.
	WarnOnly
)

type Step struct {
	Name   string
	Policy Policy
	Run    func(ctx context.Context) error
}

type Outcome int

const (
	Succeeded Outcome = iota
	SucceededWithWarnings
	Failed
)

type Warning struct {
	Step string
	Err  error
}

type Result struct {
	Outcome    Outcome
	FailedStep string
	Warnings   []Warning
	Err        error
}

// Ok reports whether the pipeline reached its end, with or without warnings.
func (r Result) Ok() bool {
	return r.Outcome != Failed
}

// CleanupFunc runs after a fatal failure or cancellation, before Run returns.
type CleanupFunc func(ctx context.Context, cause error)

type Runner struct {
	steps   []Step
	cleanup CleanupFunc
	logger  *logging.Logger
}

func New(logger *logging.Logger, steps ...Step) *Runner {
	return &Runner{steps: steps, logger: logger}
}

// WithCleanup registers the cleanup hook. At most one hook is supported;
// later calls replace earlier ones.
func (r *Runner) WithCleanup(fn CleanupFunc) *Runner {
	r.cleanup = fn
	return r
}

// Run executes the steps strictly in order. The first Fatal step failure
// stops execution; WarnOnly failures accumulate as warnings. Cancellation of
// ctx between steps takes the same path as a fatal failure.
func (r *Runner) Run(ctx context.Context) Result {
	result := Result{}

	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			cause := fmt.Errorf("pipeline interrupted before step %s: %w", step.Name, err)
			return r.fail(ctx, result, step.Name, cause)
		}

		r.logger.Info("==> %s", step.Name)
		err := step.Run(ctx)
		if err == nil {
			continue
		}

		if step.Policy == WarnOnly {
			r.logger.Warn(fmt.Sprintf("%s failed (continuing)", step.Name), err)
			result.Warnings = append(result.Warnings, Warning{Step: step.Name, Err: err})
			continue
		}
		return r.fail(ctx, result, step.Name, err)
	}

	if len(result.Warnings) > 0 {
		result.Outcome = SucceededWithWarnings
	}
	return result
}

func (r *Runner) fail(ctx context.Context, result Result, stepName string, cause error) Result {
	if r.cleanup != nil {
		// Cleanup must run even when the context is already canceled.
		r.cleanup(context.WithoutCancel(ctx), cause)
	}
	result.Outcome = Failed
	result.FailedStep = stepName
	result.Err = cause
	return result
}

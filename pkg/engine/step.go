package engine

import (
	"context"
	"fmt"
)

// StepFunc performs a step and reports its outcome.
type StepFunc func(ctx context.Context, rc *RunContext) Outcome

// Step is a named unit of provisioning work.
type Step struct {
	// Name identifies the step to the operator. Assumed unique within a run.
	Name string

	// Isolated steps record their failure and let the run continue.
	// Non-isolated steps abort the run when they fail.
	Isolated bool

	// Run performs the step.
	Run StepFunc
}

// Guard describes the idempotency and precondition policy of a step.
type Guard struct {
	// Satisfied reports whether the step's work is already done. It must be
	// deterministic and side-effect free. Nil means never satisfied.
	Satisfied func(ctx context.Context, rc *RunContext) (bool, string)

	// Precondition returns an error describing a missing prerequisite.
	// Nil means no prerequisite.
	Precondition func(ctx context.Context, rc *RunContext) error

	// Effect performs the mutation.
	Effect func(ctx context.Context, rc *RunContext) error
}

// NewStep builds a step that consults the guard's checks before the effect.
func NewStep(name string, isolated bool, g Guard) Step {
	return Step{
		Name:     name,
		Isolated: isolated,
		Run:      g.run,
	}
}

// Isolated is shorthand for an isolated guarded step.
func Isolated(name string, g Guard) Step {
	return NewStep(name, true, g)
}

// Fatal is shorthand for a guarded step whose failure aborts the run.
func Fatal(name string, g Guard) Step {
	return NewStep(name, false, g)
}

func (g Guard) run(ctx context.Context, rc *RunContext) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Failure(fmt.Sprintf("panic: %v", r))
		}
	}()

	if g.Satisfied != nil {
		if done, reason := g.Satisfied(ctx, rc); done {
			return Skipped(reason)
		}
	}

	if g.Precondition != nil {
		if err := g.Precondition(ctx, rc); err != nil {
			return Failure(fmt.Sprintf("missing precondition: %v", err))
		}
	}

	if rc != nil && rc.DryRun {
		return Skipped("dry run")
	}

	if g.Effect == nil {
		return Success()
	}

	if err := g.Effect(ctx, rc); err != nil {
		return Failure(err.Error())
	}
	return Success()
}

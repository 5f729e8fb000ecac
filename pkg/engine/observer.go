package engine

import (
	"context"
	"time"
)

// StepInfo describes a step to observers without exposing its Run func.
type StepInfo struct {
	Name     string
	Isolated bool
	Index    int // 1-based position in the run
	Total    int
}

// Observer receives lifecycle callbacks from the orchestrator. Observers
// cannot change outcomes.
type Observer interface {
	RunStarted(ctx context.Context, rc *RunContext, total int)

	// StepStarted may return a derived context (e.g. carrying a span) that
	// is passed to the step and to StepFinished.
	StepStarted(ctx context.Context, rc *RunContext, step StepInfo) context.Context

	StepFinished(ctx context.Context, rc *RunContext, step StepInfo, out Outcome, elapsed time.Duration)

	RunFinished(ctx context.Context, rc *RunContext, failures *FailureLog, err error)
}

// NopObserver implements Observer with no-ops. Embed it to override only
// the callbacks you need.
type NopObserver struct{}

func (NopObserver) RunStarted(context.Context, *RunContext, int) {}

func (NopObserver) StepStarted(ctx context.Context, _ *RunContext, _ StepInfo) context.Context {
	return ctx
}

func (NopObserver) StepFinished(context.Context, *RunContext, StepInfo, Outcome, time.Duration) {}

func (NopObserver) RunFinished(context.Context, *RunContext, *FailureLog, error) {}

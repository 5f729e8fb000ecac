package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Orchestrator runs steps strictly in order, one attempt each.
type Orchestrator struct {
	// observers are notified around every step
	observers []Observer

	logger zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers an observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger sets the logger used for step lifecycle messages.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the steps in the given order and returns the failure log.
//
// A failing isolated step is recorded and the run continues. A failing
// non-isolated step stops the run immediately: the returned error is a
// *FatalError and no later step is invoked. Cancelling ctx stops the run
// before the next step with a FatalReasonInterrupted error.
func (o *Orchestrator) Run(ctx context.Context, rc *RunContext, steps []Step) (*FailureLog, error) {
	failures := &FailureLog{}
	total := len(steps)

	runLog := o.logger.With().Int("steps", total).Logger()
	if rc != nil {
		runLog = runLog.With().Str("run_id", rc.RunID).Str("user", rc.Username).Logger()
	}
	runLog.Info().Msg("Run started")

	for _, obs := range o.observers {
		obs.RunStarted(ctx, rc, total)
	}

	var runErr error
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			runErr = NewFatalError(FatalReasonInterrupted, "run interrupted", err).WithStep(step.Name)
			break
		}

		info := StepInfo{
			Name:     step.Name,
			Isolated: step.Isolated,
			Index:    i + 1,
			Total:    total,
		}

		out, elapsed := o.runStep(ctx, rc, step, info)

		stepLog := runLog.With().
			Str("step", step.Name).
			Bool("isolated", step.Isolated).
			Dur("elapsed", elapsed).
			Logger()

		switch out.Status {
		case OutcomeSuccess:
			stepLog.Info().Msg("Step succeeded")
		case OutcomeSkipped:
			stepLog.Info().Str("reason", out.Reason).Msg("Step skipped")
		case OutcomeFailure:
			if !step.Isolated {
				stepLog.Error().Str("reason", out.Reason).Msg("Fatal step failed")
				runErr = NewFatalError(FatalReasonStep, out.Reason, nil).WithStep(step.Name)
			} else {
				stepLog.Warn().Str("reason", out.Reason).Msg("Step failed")
				failures.record(step.Name)
			}
		default:
			// An unknown tag is treated as a failure.
			stepLog.Warn().Str("status", string(out.Status)).Msg("Step returned invalid outcome")
			if !step.Isolated {
				runErr = NewFatalError(FatalReasonStep, "invalid outcome", nil).WithStep(step.Name)
			} else {
				failures.record(step.Name)
			}
		}

		if runErr != nil {
			break
		}
	}

	if runErr != nil {
		runLog.Error().Err(runErr).Msg("Run aborted")
	} else {
		runLog.Info().Int("failed", failures.Len()).Msg("Run completed")
	}

	for _, obs := range o.observers {
		obs.RunFinished(ctx, rc, failures, runErr)
	}

	return failures, runErr
}

func (o *Orchestrator) runStep(ctx context.Context, rc *RunContext, step Step, info StepInfo) (Outcome, time.Duration) {
	stepCtx := ctx
	for _, obs := range o.observers {
		stepCtx = obs.StepStarted(stepCtx, rc, info)
	}

	start := time.Now()
	var out Outcome
	if step.Run == nil {
		out = Failure("step has no run function")
	} else {
		out = step.Run(stepCtx, rc)
	}
	elapsed := time.Since(start)

	for _, obs := range o.observers {
		obs.StepFinished(stepCtx, rc, info, out, elapsed)
	}

	return out, elapsed
}

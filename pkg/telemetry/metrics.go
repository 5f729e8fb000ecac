package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for provisioning runs. It implements
// engine.Observer.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastRun       *prometheus.GaugeVec

	// Step metrics
	stepsExecuted *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	stepsFailed   prometheus.Gauge

	// Error metrics
	fatalErrors *prometheus.CounterVec

	registry *prometheus.Registry
	started  time.Time
}

// NewMetrics creates a new metrics collector with its own registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of provisioning runs started",
			},
			[]string{"user"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of provisioning runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of provisioning runs in seconds",
				Buckets:   buckets,
			},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
			[]string{"status"},
		),

		stepsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_executed_total",
				Help:      "Total number of steps executed by outcome",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of steps in seconds",
				Buckets:   buckets,
			},
			[]string{"step"},
		),
		stepsFailed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "steps_failed",
				Help:      "Number of isolated steps that failed in the last run",
			},
		),

		fatalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fatal_errors_total",
				Help:      "Total number of fatal errors by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.lastRun,
		m.stepsExecuted,
		m.stepDuration,
		m.stepsFailed,
		m.fatalErrors,
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFatal counts a fatal error that happened outside the orchestrator,
// such as a failed environment check.
func (m *Metrics) RecordFatal(err error) {
	reason := "unknown"
	if fe, ok := engine.AsFatal(err); ok {
		reason = string(fe.Reason)
	}
	m.fatalErrors.WithLabelValues(reason).Inc()
}

// RunStarted implements engine.Observer.
func (m *Metrics) RunStarted(_ context.Context, rc *engine.RunContext, _ int) {
	m.started = time.Now()
	user := ""
	if rc != nil {
		user = rc.Username
	}
	m.runsStarted.WithLabelValues(user).Inc()
}

// StepStarted implements engine.Observer.
func (m *Metrics) StepStarted(ctx context.Context, _ *engine.RunContext, _ engine.StepInfo) context.Context {
	return ctx
}

// StepFinished implements engine.Observer.
func (m *Metrics) StepFinished(_ context.Context, _ *engine.RunContext, step engine.StepInfo, out engine.Outcome, elapsed time.Duration) {
	m.stepsExecuted.WithLabelValues(step.Name, string(out.Status)).Inc()
	m.stepDuration.WithLabelValues(step.Name).Observe(elapsed.Seconds())
}

// RunFinished implements engine.Observer.
func (m *Metrics) RunFinished(_ context.Context, _ *engine.RunContext, failures *engine.FailureLog, err error) {
	status := runStatus(failures, err)
	if err != nil {
		m.RecordFatal(err)
	}

	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.Observe(time.Since(m.started).Seconds())
	m.lastRun.WithLabelValues(status).SetToCurrentTime()
	m.stepsFailed.Set(float64(failures.Len()))
}

// WriteTextfile writes the metrics to the configured textfile. It does
// nothing when no textfile is configured.
func (m *Metrics) WriteTextfile() error {
	if m.config.Textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.config.Textfile), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(m.config.Textfile, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// runStatus classifies a finished run.
func runStatus(failures *engine.FailureLog, err error) string {
	switch {
	case err != nil:
		return "fatal"
	case failures.Len() > 0:
		return "partial"
	default:
		return "success"
	}
}

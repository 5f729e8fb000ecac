package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/openfroyo/froyodesk/pkg/engine"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Common attribute keys for provisioning spans.
var (
	AttrRunID        = attribute.Key("run.id")
	AttrRunUser      = attribute.Key("run.user")
	AttrRunStatus    = attribute.Key("run.status")
	AttrRunSteps     = attribute.Key("run.steps")
	AttrRunFailed    = attribute.Key("run.failed_steps")
	AttrStepName     = attribute.Key("step.name")
	AttrStepIndex    = attribute.Key("step.index")
	AttrStepIsolated = attribute.Key("step.isolated")
	AttrStepOutcome  = attribute.Key("step.outcome")
	AttrStepReason   = attribute.Key("step.reason")
	AttrFatalReason  = attribute.Key("error.fatal_reason")
)

// Tracer records one span per run and one child span per step. It
// implements engine.Observer.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
	closer   io.Closer

	mu   sync.Mutex
	runs map[string]trace.Span
}

// NewTracer creates a tracer with the given configuration. The "none"
// exporter still creates spans but exports nothing.
func NewTracer(cfg TracingConfig, serviceName, serviceVersion string) (*Tracer, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	}

	var closer io.Closer
	switch cfg.Exporter {
	case "otlp":
		exporter, err := createOTLPExporter(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithExportTimeout(cfg.ExportTimeout)))
	case "stdout":
		var w io.Writer = os.Stderr
		if cfg.File != "" {
			f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, fmt.Errorf("failed to open trace file: %w", err)
			}
			w, closer = f, f
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithSyncer(exporter))
	case "", "none":
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}

	t := NewTracerWithProvider(sdktrace.NewTracerProvider(opts...), serviceName)
	t.config = cfg
	t.closer = closer
	return t, nil
}

// NewTracerWithProvider wraps an existing provider.
func NewTracerWithProvider(provider *sdktrace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		runs:     make(map[string]trace.Span),
	}
}

// createOTLPExporter creates an OTLP gRPC exporter.
func createOTLPExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent("froyodesk")),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	return otlptracegrpc.New(context.Background(), opts...)
}

// RunStarted implements engine.Observer.
func (t *Tracer) RunStarted(ctx context.Context, rc *engine.RunContext, total int) {
	if rc == nil {
		return
	}
	_, span := t.tracer.Start(ctx, "provision.run", trace.WithAttributes(
		AttrRunID.String(rc.RunID),
		AttrRunUser.String(rc.Username),
		AttrRunSteps.Int(total),
	))

	t.mu.Lock()
	t.runs[rc.RunID] = span
	t.mu.Unlock()
}

// StepStarted implements engine.Observer. The returned context carries the
// step span as a child of the run span.
func (t *Tracer) StepStarted(ctx context.Context, rc *engine.RunContext, step engine.StepInfo) context.Context {
	if span := t.runSpan(rc); span != nil {
		ctx = trace.ContextWithSpan(ctx, span)
	}
	ctx, _ = t.tracer.Start(ctx, "provision.step", trace.WithAttributes(
		AttrStepName.String(step.Name),
		AttrStepIndex.Int(step.Index),
		AttrStepIsolated.Bool(step.Isolated),
	))
	return ctx
}

// StepFinished implements engine.Observer.
func (t *Tracer) StepFinished(ctx context.Context, _ *engine.RunContext, _ engine.StepInfo, out engine.Outcome, _ time.Duration) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(AttrStepOutcome.String(string(out.Status)))
	if out.Reason != "" {
		span.SetAttributes(AttrStepReason.String(out.Reason))
	}
	if out.Failed() {
		span.SetStatus(codes.Error, out.Reason)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RunFinished implements engine.Observer.
func (t *Tracer) RunFinished(_ context.Context, rc *engine.RunContext, failures *engine.FailureLog, err error) {
	if rc == nil {
		return
	}
	t.mu.Lock()
	span, ok := t.runs[rc.RunID]
	delete(t.runs, rc.RunID)
	t.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		AttrRunStatus.String(runStatus(failures, err)),
		AttrRunFailed.Int(failures.Len()),
	)
	if err != nil {
		if fe, ok := engine.AsFatal(err); ok {
			span.SetAttributes(AttrFatalReason.String(string(fe.Reason)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (t *Tracer) runSpan(rc *engine.RunContext) trace.Span {
	if rc == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs[rc.RunID]
}

// Shutdown flushes pending spans and releases the exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	err := t.provider.Shutdown(ctx)
	if t.closer != nil {
		if cerr := t.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

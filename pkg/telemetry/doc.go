// Package telemetry provides observability for provisioning runs.
//
// The telemetry package integrates structured logging (zerolog), tracing
// (OpenTelemetry) and metrics (Prometheus). Tracing and metrics plug into
// the orchestrator as engine.Observer implementations, so they see every
// step without steps knowing about them.
//
// # Usage
//
// Initialize telemetry at startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.Metrics.Textfile = "/var/lib/node_exporter/textfile/froyodesk.prom"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Failed to initialize telemetry")
//	}
//	defer tel.Shutdown(context.Background())
//
//	opts := []engine.Option{}
//	for _, obs := range tel.Observers() {
//	    opts = append(opts, engine.WithObserver(obs))
//	}
//	orch := engine.NewOrchestrator(opts...)
//
// # Tracing
//
// Each run produces a "provision.run" span with one "provision.step" child
// per step. Step spans carry the step name, position, isolation and
// outcome; failed steps set the span status to Error. Exporters: none,
// stdout (optionally to a file) and otlp over gRPC.
//
// # Metrics
//
// A provisioning run is short-lived, so metrics are not served over HTTP.
// Shutdown writes them in the Prometheus text format to the configured
// textfile for the node exporter textfile collector:
//
//   - froyodesk_runs_started_total{user}
//   - froyodesk_runs_completed_total{status}
//   - froyodesk_run_duration_seconds
//   - froyodesk_last_run_timestamp_seconds{status}
//   - froyodesk_steps_executed_total{step,status}
//   - froyodesk_step_duration_seconds{step}
//   - froyodesk_steps_failed
//   - froyodesk_fatal_errors_total{reason}
package telemetry

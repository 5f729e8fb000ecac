package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGuard_SatisfiedSkipsEffect(t *testing.T) {
	effectCalls := 0
	preconditionCalls := 0

	step := Isolated("fonts", Guard{
		Satisfied: func(ctx context.Context, rc *RunContext) (bool, string) {
			return true, "fonts already installed"
		},
		Precondition: func(ctx context.Context, rc *RunContext) error {
			preconditionCalls++
			return nil
		},
		Effect: func(ctx context.Context, rc *RunContext) error {
			effectCalls++
			return nil
		},
	})

	out := step.Run(context.Background(), testRunContext())
	if out.Status != OutcomeSkipped {
		t.Errorf("Expected skipped, got %s", out)
	}
	if out.Reason != "fonts already installed" {
		t.Errorf("Expected reason to be carried, got %q", out.Reason)
	}
	if effectCalls != 0 {
		t.Errorf("Expected effect not to run, got %d calls", effectCalls)
	}
	if preconditionCalls != 0 {
		t.Errorf("Expected precondition not to run, got %d calls", preconditionCalls)
	}
}

func TestGuard_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		guard      Guard
		wantStatus OutcomeStatus
		wantReason string
	}{
		{
			name: "effect succeeds",
			guard: Guard{
				Effect: func(ctx context.Context, rc *RunContext) error { return nil },
			},
			wantStatus: OutcomeSuccess,
		},
		{
			name: "effect fails",
			guard: Guard{
				Effect: func(ctx context.Context, rc *RunContext) error { return errors.New("download failed") },
			},
			wantStatus: OutcomeFailure,
			wantReason: "download failed",
		},
		{
			name: "precondition missing",
			guard: Guard{
				Precondition: func(ctx context.Context, rc *RunContext) error { return errors.New("zsh not found") },
				Effect:       func(ctx context.Context, rc *RunContext) error { panic("must not run") },
			},
			wantStatus: OutcomeFailure,
			wantReason: "missing precondition",
		},
		{
			name: "effect panics",
			guard: Guard{
				Effect: func(ctx context.Context, rc *RunContext) error { panic("nil map") },
			},
			wantStatus: OutcomeFailure,
			wantReason: "panic: nil map",
		},
		{
			name: "satisfied check panics",
			guard: Guard{
				Satisfied: func(ctx context.Context, rc *RunContext) (bool, string) { panic("bad path") },
				Effect:    func(ctx context.Context, rc *RunContext) error { return nil },
			},
			wantStatus: OutcomeFailure,
			wantReason: "panic: bad path",
		},
		{
			name: "precondition panics",
			guard: Guard{
				Precondition: func(ctx context.Context, rc *RunContext) error { panic("index out of range") },
				Effect:       func(ctx context.Context, rc *RunContext) error { return nil },
			},
			wantStatus: OutcomeFailure,
			wantReason: "panic: index out of range",
		},
		{
			name: "not satisfied runs effect",
			guard: Guard{
				Satisfied: func(ctx context.Context, rc *RunContext) (bool, string) { return false, "" },
				Effect:    func(ctx context.Context, rc *RunContext) error { return nil },
			},
			wantStatus: OutcomeSuccess,
		},
		{
			name:       "no effect",
			guard:      Guard{},
			wantStatus: OutcomeSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewStep(tt.name, true, tt.guard).Run(context.Background(), testRunContext())
			if out.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", out.Status, tt.wantStatus)
			}
			if !strings.Contains(out.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", out.Reason, tt.wantReason)
			}
		})
	}
}

func TestGuard_DryRunStopsBeforeEffect(t *testing.T) {
	rc := testRunContext()
	rc.DryRun = true

	called := false
	out := Fatal("refresh-package-database", Guard{
		Effect: func(ctx context.Context, rc *RunContext) error {
			called = true
			return nil
		},
	}).Run(context.Background(), rc)

	if called {
		t.Error("Expected effect not to run in dry run")
	}
	if out.Status != OutcomeSkipped || out.Reason != "dry run" {
		t.Errorf("Expected skipped dry run, got %s", out)
	}
}

func TestGuard_DryRunStillReportsMissingPrecondition(t *testing.T) {
	rc := testRunContext()
	rc.DryRun = true

	out := Isolated("default-shell", Guard{
		Precondition: func(ctx context.Context, rc *RunContext) error { return errors.New("zsh not found") },
	}).Run(context.Background(), rc)

	if !out.Failed() {
		t.Errorf("Expected failure, got %s", out)
	}
}

func TestOutcomeStatusValidate(t *testing.T) {
	tests := []struct {
		status  OutcomeStatus
		wantErr bool
	}{
		{OutcomeSuccess, false},
		{OutcomeSkipped, false},
		{OutcomeFailure, false},
		{OutcomeStatus("partial"), true},
		{OutcomeStatus(""), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if err := tt.status.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunContextValues(t *testing.T) {
	rc := &RunContext{}
	rc.Set("package_list", "/tmp/list.csv")

	v, ok := rc.Get("package_list")
	if !ok || v != "/tmp/list.csv" {
		t.Errorf("Get() = %q, %v", v, ok)
	}

	rc.Delete("package_list")
	if _, ok := rc.Get("package_list"); ok {
		t.Error("Expected value to be deleted")
	}
}

func TestNewRunContextAssignsRunID(t *testing.T) {
	a := NewRunContext("alice", "/home/alice", 1000, 1000)
	b := NewRunContext("alice", "/home/alice", 1000, 1000)
	if a.RunID == "" || a.RunID == b.RunID {
		t.Errorf("Expected distinct run IDs, got %q and %q", a.RunID, b.RunID)
	}
}

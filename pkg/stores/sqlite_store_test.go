package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openfroyo/froyodesk/pkg/engine"
	"github.com/rs/zerolog"
)

// setupTestJournal creates an in-memory journal for testing
func setupTestJournal(t *testing.T) *Journal {
	t.Helper()

	logger := zerolog.Nop()
	j, err := Open(context.Background(), Config{Path: MemoryPath, Logger: &logger})
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func newRun(id string) *Run {
	return &Run{
		ID:        id,
		Username:  "alice",
		Hostname:  "desk",
		Status:    RunStatusRunning,
		StepCount: 3,
		StartedAt: time.Now().UTC(),
	}
}

func TestJournalLifecycle(t *testing.T) {
	j := setupTestJournal(t)

	if err := j.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestOpen_FileReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "journal.db")

	j, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	if err := j.CreateRun(ctx, newRun("run-1")); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("failed to close journal: %v", err)
	}

	// migrations are already applied on the second open
	j, err = Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("failed to reopen journal: %v", err)
	}
	defer j.Close()

	if _, err := j.GetRun(ctx, "run-1"); err != nil {
		t.Errorf("Expected run to survive reopen: %v", err)
	}
}

func TestRunOperations(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	if err := j.CreateRun(ctx, newRun("run-1")); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	steps := []StepResult{
		{RunID: "run-1", Position: 2, Name: "fonts", Isolated: true, Status: "failure", Reason: "download failed", Duration: 1500 * time.Millisecond},
		{RunID: "run-1", Position: 1, Name: "refresh-packages", Status: "success", Duration: 2 * time.Second},
	}
	for i := range steps {
		steps[i].FinishedAt = time.Now().UTC()
		if err := j.AddStepResult(ctx, &steps[i]); err != nil {
			t.Fatalf("failed to add step result: %v", err)
		}
	}

	runErr := engine.NewFatalError(engine.FatalReasonStep, "required step failed", errors.New("exit status 100")).WithStep("refresh-packages")
	if err := j.CompleteRun(ctx, "run-1", RunStatusFatal, 1, runErr, time.Now().UTC()); err != nil {
		t.Fatalf("failed to complete run: %v", err)
	}

	run, err := j.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}

	if run.Status != RunStatusFatal {
		t.Errorf("Expected status %s, got %s", RunStatusFatal, run.Status)
	}
	if run.FailedCount != 1 {
		t.Errorf("Expected 1 failed step, got %d", run.FailedCount)
	}
	if run.FatalReason == nil || *run.FatalReason != string(engine.FatalReasonStep) {
		t.Errorf("Expected fatal reason %s, got %v", engine.FatalReasonStep, run.FatalReason)
	}
	if run.Error == nil || *run.Error != runErr.Error() {
		t.Errorf("Expected error %q, got %v", runErr.Error(), run.Error)
	}
	if run.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}

	if len(run.Steps) != 2 {
		t.Fatalf("Expected 2 step results, got %d", len(run.Steps))
	}
	if run.Steps[0].Name != "refresh-packages" || run.Steps[1].Name != "fonts" {
		t.Errorf("Expected steps in position order, got %s, %s", run.Steps[0].Name, run.Steps[1].Name)
	}
	if run.Steps[1].Duration != 1500*time.Millisecond {
		t.Errorf("Expected duration 1.5s, got %s", run.Steps[1].Duration)
	}
	if !run.Steps[1].Failed() || run.Steps[0].Failed() {
		t.Error("Expected only fonts to be failed")
	}
	if !run.Steps[1].Isolated {
		t.Error("Expected fonts to be isolated")
	}
}

func TestRunNotFound(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	if _, err := j.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound from GetRun, got %v", err)
	}
	if err := j.CompleteRun(ctx, "missing", RunStatusSuccess, 0, nil, time.Now()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound from CompleteRun, got %v", err)
	}
}

func TestStepResultRequiresRun(t *testing.T) {
	j := setupTestJournal(t)

	err := j.AddStepResult(context.Background(), &StepResult{
		RunID:      "missing",
		Position:   1,
		Name:       "fonts",
		Status:     "success",
		FinishedAt: time.Now(),
	})
	if err == nil {
		t.Error("Expected foreign key violation")
	}
}

func TestRecentRunsAndPrune(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = uuid.New().String()
		if err := j.CreateRun(ctx, newRun(ids[i])); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if err := j.AddStepResult(ctx, &StepResult{RunID: ids[i], Position: 1, Name: "fonts", Status: "success", FinishedAt: time.Now()}); err != nil {
			t.Fatalf("failed to add step result: %v", err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"newest first", 2, []string{ids[4], ids[3]}},
		{"limit above count", 10, []string{ids[4], ids[3], ids[2], ids[1], ids[0]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := j.RecentRuns(ctx, tt.limit)
			if err != nil {
				t.Fatalf("failed to list runs: %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("Expected %d runs, got %d", len(tt.want), len(runs))
			}
			for i, run := range runs {
				if run.ID != tt.want[i] {
					t.Errorf("Expected run %d to be %s, got %s", i, tt.want[i], run.ID)
				}
			}
		})
	}

	removed, err := j.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("Expected 3 pruned runs, got %d", removed)
	}

	runs, err := j.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs after prune, got %d", len(runs))
	}

	steps, err := j.StepResults(ctx, ids[0])
	if err != nil {
		t.Fatalf("failed to list step results: %v", err)
	}
	if len(steps) != 0 {
		t.Errorf("Expected step results of pruned run to be deleted, got %d", len(steps))
	}
}

func TestJournalObserver(t *testing.T) {
	tests := []struct {
		name       string
		steps      []engine.Step
		wantStatus RunStatus
		wantFailed int
		wantSteps  int
		wantReason bool
	}{
		{
			name: "success",
			steps: []engine.Step{
				{Name: "a", Isolated: true, Run: func(context.Context, *engine.RunContext) engine.Outcome { return engine.Success() }},
				{Name: "b", Isolated: true, Run: func(context.Context, *engine.RunContext) engine.Outcome { return engine.Skipped("done") }},
			},
			wantStatus: RunStatusSuccess,
			wantSteps:  2,
		},
		{
			name: "partial",
			steps: []engine.Step{
				{Name: "a", Isolated: true, Run: func(context.Context, *engine.RunContext) engine.Outcome { return engine.Failure("boom") }},
				{Name: "b", Isolated: true, Run: func(context.Context, *engine.RunContext) engine.Outcome { return engine.Success() }},
			},
			wantStatus: RunStatusPartial,
			wantFailed: 1,
			wantSteps:  2,
		},
		{
			name: "fatal",
			steps: []engine.Step{
				{Name: "a", Run: func(context.Context, *engine.RunContext) engine.Outcome { return engine.Failure("no network") }},
				{Name: "b", Isolated: true, Run: func(context.Context, *engine.RunContext) engine.Outcome { return engine.Success() }},
			},
			wantStatus: RunStatusFatal,
			wantSteps:  1,
			wantReason: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := setupTestJournal(t)
			ctx := context.Background()

			rc := engine.NewRunContext("alice", t.TempDir(), 1000, 1000)
			orch := engine.NewOrchestrator(engine.WithLogger(zerolog.Nop()), engine.WithObserver(j))
			_, _ = orch.Run(ctx, rc, tt.steps)

			run, err := j.GetRun(ctx, rc.RunID)
			if err != nil {
				t.Fatalf("failed to get run: %v", err)
			}
			if run.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, run.Status)
			}
			if run.FailedCount != tt.wantFailed {
				t.Errorf("Expected %d failed, got %d", tt.wantFailed, run.FailedCount)
			}
			if run.StepCount != len(tt.steps) {
				t.Errorf("Expected step count %d, got %d", len(tt.steps), run.StepCount)
			}
			if len(run.Steps) != tt.wantSteps {
				t.Errorf("Expected %d step results, got %d", tt.wantSteps, len(run.Steps))
			}
			if (run.FatalReason != nil) != tt.wantReason {
				t.Errorf("Expected fatal reason set = %v, got %v", tt.wantReason, run.FatalReason)
			}
			if run.Username != "alice" {
				t.Errorf("Expected username alice, got %s", run.Username)
			}
		})
	}
}

package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestReport_Empty(t *testing.T) {
	for _, log := range []*FailureLog{nil, {}} {
		s := Report(log)
		if !s.Succeeded {
			t.Error("Expected success")
		}
		if s.Text != SuccessMessage {
			t.Errorf("Text = %q", s.Text)
		}
		if len(s.Failed) != 0 {
			t.Errorf("Expected no failed steps, got %v", s.Failed)
		}
	}
}

func TestReport_NamesFailuresInOrder(t *testing.T) {
	log := &FailureLog{}
	log.record("fonts")
	log.record("tool:starship")
	log.record("default-shell")

	s := Report(log)
	if s.Succeeded {
		t.Error("Expected success-with-exceptions, got unconditional success")
	}
	if !strings.Contains(s.Text, "3 failed steps") {
		t.Errorf("Expected count in text, got %q", s.Text)
	}

	last := -1
	for _, name := range []string{"fonts", "tool:starship", "default-shell"} {
		idx := strings.Index(s.Text, name)
		if idx < 0 {
			t.Fatalf("Expected %q in summary", name)
		}
		if idx < last {
			t.Errorf("Expected %q after previous failure", name)
		}
		last = idx
	}

	if log.Len() != 3 {
		t.Errorf("Report must not modify the log, got len %d", log.Len())
	}
}

func TestReport_SingleFailureGrammar(t *testing.T) {
	log := &FailureLog{}
	log.record("dotfiles")

	s := Report(log)
	if !strings.Contains(s.Text, "1 failed step:") {
		t.Errorf("Expected singular noun, got %q", s.Text)
	}
}

func TestFailureLogNamesIsCopy(t *testing.T) {
	log := &FailureLog{}
	log.record("a")

	names := log.Names()
	names[0] = "mutated"

	if log.Names()[0] != "a" {
		t.Error("Expected Names to return a copy")
	}
}

func TestFatalErrorClassification(t *testing.T) {
	cause := errors.New("euid is 1000")
	err := NewFatalError(FatalReasonPrivilege, "must run as root", cause)

	if !errors.Is(err, ErrPrivilege) {
		t.Error("Expected errors.Is to match reason sentinel")
	}
	if errors.Is(err, ErrPlatform) {
		t.Error("Expected different reasons not to match")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected underlying cause to be unwrappable")
	}
	if !IsFatal(err) {
		t.Error("Expected IsFatal")
	}
	if IsFatal(cause) {
		t.Error("Expected plain error not to be fatal")
	}

	stepErr := NewFatalError(FatalReasonStep, "refresh failed", nil).WithStep("refresh-package-database")
	if !strings.Contains(stepErr.Error(), "step=refresh-package-database") {
		t.Errorf("Expected step in message, got %q", stepErr.Error())
	}
}

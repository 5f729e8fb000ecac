package engine

import (
	"encoding/json"
	"fmt"
)

// OutcomeStatus is the tag of a step outcome.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the step performed its effect successfully.
	OutcomeSuccess OutcomeStatus = "success"

	// OutcomeSkipped indicates the step was already satisfied and did nothing.
	OutcomeSkipped OutcomeStatus = "skipped"

	// OutcomeFailure indicates the step failed.
	OutcomeFailure OutcomeStatus = "failure"
)

// Failed returns true if the status represents a failed step.
func (s OutcomeStatus) Failed() bool {
	return s == OutcomeFailure
}

// Validate checks if the outcome status is valid.
func (s OutcomeStatus) Validate() error {
	switch s {
	case OutcomeSuccess, OutcomeSkipped, OutcomeFailure:
		return nil
	default:
		return fmt.Errorf("invalid outcome status: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s OutcomeStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *OutcomeStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = OutcomeStatus(str)
	return s.Validate()
}

// Outcome is the result of running a single step.
type Outcome struct {
	// Status is the outcome tag. The orchestrator only ever inspects this.
	Status OutcomeStatus `json:"status"`

	// Reason explains a skip or a failure. Empty on success.
	Reason string `json:"reason,omitempty"`
}

// Success returns a successful outcome.
func Success() Outcome {
	return Outcome{Status: OutcomeSuccess}
}

// Skipped returns an outcome for a step whose work was already done.
func Skipped(reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}

// Failure returns a failed outcome.
func Failure(reason string) Outcome {
	return Outcome{Status: OutcomeFailure, Reason: reason}
}

// Failed returns true if the outcome is a failure.
func (o Outcome) Failed() bool {
	return o.Status.Failed()
}

// String renders the outcome for logs.
func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Status)
	}
	return fmt.Sprintf("%s (%s)", o.Status, o.Reason)
}

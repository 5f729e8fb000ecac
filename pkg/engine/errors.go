package engine

import (
	"errors"
	"fmt"
)

// FatalReason classifies why a run was aborted.
type FatalReason string

const (
	// FatalReasonPrivilege indicates the process lacks root privileges.
	FatalReasonPrivilege FatalReason = "privilege"

	// FatalReasonPlatform indicates the host is not the supported distribution
	// or the platform detection utility is missing.
	FatalReasonPlatform FatalReason = "platform"

	// FatalReasonIdentity indicates the target user could not be resolved.
	FatalReasonIdentity FatalReason = "identity"

	// FatalReasonHome indicates the target user's home directory is missing.
	FatalReasonHome FatalReason = "home"

	// FatalReasonDeclined indicates the operator declined to continue.
	FatalReasonDeclined FatalReason = "declined"

	// FatalReasonStep indicates a non-isolated step failed.
	FatalReasonStep FatalReason = "step"

	// FatalReasonInterrupted indicates the run was cancelled from outside.
	FatalReasonInterrupted FatalReason = "interrupted"
)

// FatalError aborts the whole run. It is distinct from a step Failure
// outcome, which is an ordinary value.
type FatalError struct {
	// Reason is the fatal classification.
	Reason FatalReason `json:"reason"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Step is the name of the step that failed, for FatalReasonStep.
	Step string `json:"step,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	msg := e.Message
	if e.Step != "" {
		msg = fmt.Sprintf("%s (step=%s)", msg, e.Step)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Reason, msg, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Reason, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *FatalError) Is(target error) bool {
	t, ok := target.(*FatalError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// NewFatalError creates a new fatal error.
func NewFatalError(reason FatalReason, message string, err error) *FatalError {
	return &FatalError{
		Reason:  reason,
		Message: message,
		Err:     err,
	}
}

// WithStep adds the failing step name to an error.
func (e *FatalError) WithStep(name string) *FatalError {
	e.Step = name
	return e
}

// Sentinels for errors.Is comparisons against a reason.
var (
	ErrPrivilege   = &FatalError{Reason: FatalReasonPrivilege}
	ErrPlatform    = &FatalError{Reason: FatalReasonPlatform}
	ErrIdentity    = &FatalError{Reason: FatalReasonIdentity}
	ErrHome        = &FatalError{Reason: FatalReasonHome}
	ErrDeclined    = &FatalError{Reason: FatalReasonDeclined}
	ErrFatalStep   = &FatalError{Reason: FatalReasonStep}
	ErrInterrupted = &FatalError{Reason: FatalReasonInterrupted}
)

// IsFatal returns true if err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var e *FatalError
	return errors.As(err, &e)
}

// AsFatal extracts the FatalError from an error chain.
func AsFatal(err error) (*FatalError, bool) {
	var e *FatalError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

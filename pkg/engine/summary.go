package engine

import (
	"fmt"
	"strings"
)

// Summary is the rendered final state of a run.
type Summary struct {
	// Succeeded is true when no isolated step failed.
	Succeeded bool `json:"succeeded"`

	// Failed lists the failed steps in execution order.
	Failed []string `json:"failed,omitempty"`

	// Text is the operator-facing message.
	Text string `json:"text"`
}

// SuccessMessage is printed when every step succeeded or was skipped.
const SuccessMessage = "Provisioning finished successfully. Log out and back in to start your new desktop."

// Report renders the failure log. It does not modify the log.
func Report(failures *FailureLog) Summary {
	names := failures.Names()
	if len(names) == 0 {
		return Summary{Succeeded: true, Text: SuccessMessage}
	}

	var b strings.Builder
	noun := "steps"
	if len(names) == 1 {
		noun = "step"
	}
	fmt.Fprintf(&b, "Provisioning finished with %d failed %s:\n", len(names), noun)
	for _, name := range names {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	b.WriteString("Re-run froyodesk after fixing the problems above; completed steps will be skipped.")

	return Summary{
		Succeeded: false,
		Failed:    names,
		Text:      b.String(),
	}
}

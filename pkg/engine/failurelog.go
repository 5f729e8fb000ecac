package engine

// FailureLog is the ordered record of isolated steps that failed during a
// run. Only the orchestrator appends to it.
type FailureLog struct {
	names []string
}

func (l *FailureLog) record(name string) {
	l.names = append(l.names, name)
}

// Len returns the number of failed steps.
func (l *FailureLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}

// Empty reports whether the run had no isolated failures.
func (l *FailureLog) Empty() bool {
	return l.Len() == 0
}

// Names returns a copy of the failed step names in execution order.
func (l *FailureLog) Names() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

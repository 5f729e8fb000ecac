package engine

import (
	"github.com/google/uuid"
)

// RunContext is the state of a single invocation. The environment resolver
// fills in the identity fields before any step runs; steps only read them.
type RunContext struct {
	// RunID uniquely identifies this invocation in logs and the journal.
	RunID string

	// Username is the unprivileged account being provisioned.
	Username string

	// UserHome is the absolute home directory of Username.
	UserHome string

	// UID and GID of Username, used for ownership changes and privilege drop.
	UID int
	GID int

	// DryRun makes guarded steps stop short of their effect.
	DryRun bool

	values map[string]string
}

// NewRunContext creates a run context with a fresh run ID.
func NewRunContext(username, home string, uid, gid int) *RunContext {
	return &RunContext{
		RunID:    uuid.New().String(),
		Username: username,
		UserHome: home,
		UID:      uid,
		GID:      gid,
		values:   make(map[string]string),
	}
}

// Set stores a step-scoped value, such as a downloaded file path.
func (rc *RunContext) Set(key, value string) {
	if rc.values == nil {
		rc.values = make(map[string]string)
	}
	rc.values[key] = value
}

// Get returns a step-scoped value.
func (rc *RunContext) Get(key string) (string, bool) {
	v, ok := rc.values[key]
	return v, ok
}

// Delete removes a step-scoped value once the step that owns it is done.
func (rc *RunContext) Delete(key string) {
	delete(rc.values, key)
}

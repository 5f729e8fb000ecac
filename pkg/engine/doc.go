// Package engine provides the step orchestration and failure-isolation core of froyodesk.
//
// # Overview
//
// A provisioning run is a fixed, linear list of Steps. The Orchestrator
// invokes each Step exactly once, in order, and classifies its Outcome:
//
//   - Success: the effect ran and completed
//   - Skipped: the work was already done (or the run is a dry run)
//   - Failure: the step could not complete
//
// A failing isolated Step is appended to the FailureLog and the run moves on.
// A failing non-isolated Step aborts the run with a *FatalError; no later
// Step runs and no partial summary is produced.
//
// # Step Policy
//
// Most steps are built from a Guard:
//
//	step := engine.Isolated("fonts", engine.Guard{
//	    Satisfied:    fontsInstalled,   // already done -> Skipped
//	    Precondition: fcCachePresent,   // prerequisite missing -> Failure
//	    Effect:       installFonts,     // error or panic -> Failure
//	})
//
// The Satisfied check runs first, then the Precondition, then the Effect.
// The orchestrator never looks at failure reasons, only at the tag.
//
// # Run State
//
// RunContext carries the resolved user identity for the invocation and a
// small key/value area for step-scoped values. FailureLog is append-only
// during the run and is handed to Report afterwards.
//
// # Observers
//
// Observers are notified when the run starts and finishes and around every
// step. Telemetry and the run journal are wired in as observers.
//
// # Thread Safety
//
// The orchestrator is strictly sequential. RunContext and FailureLog are not
// safe for concurrent use and do not need to be.
package engine

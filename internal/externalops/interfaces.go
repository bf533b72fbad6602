// Package externalops defines the ExternalOperations collaborator contract
// the Tick Orchestrator invokes between ticks — model calls, compilation,
// testing, and archival — plus concrete adapters. None of this is core
// protocol logic: the kernel only ever sees an ActionResult.
package externalops

import (
	"context"

	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// ActionResult is the outcome of a single collaborator call, as consumed
// by the orchestrator: Success gates whether produced Artifacts are
// recorded, Error carries a human-readable failure description, and
// Recoverable governs whether a failure transition is still reachable.
type ActionResult struct {
	Success     bool
	Artifacts   []phase.ArtifactType
	Error       string
	Recoverable bool
}

// Operations is the full collaborator contract the orchestrator consumes.
// Implementations perform the actual expensive work (model inference,
// compilation, test execution, archival) entirely outside the kernel.
type Operations interface {
	// ExecuteModelCall drives whatever model interaction the given phase
	// requires (drafting a lattice, auditing a composition, implementing
	// a cluster, ...) and reports which artifacts it produced.
	ExecuteModelCall(ctx context.Context, p phase.Phase) (ActionResult, error)

	// RunCompilation builds the artifacts produced so far.
	RunCompilation(ctx context.Context) (ActionResult, error)

	// RunTests executes the project's test suite.
	RunTests(ctx context.Context) (ActionResult, error)

	// ArchivePhaseArtifacts persists the artifacts produced during p beyond
	// the in-memory snapshot (e.g. to version control).
	ArchivePhaseArtifacts(ctx context.Context, p phase.Phase) (ActionResult, error)

	// SendBlockingNotification alerts a human that the protocol is halted
	// awaiting their input. Delivery failures must not affect protocol
	// state; callers absorb them.
	SendBlockingNotification(ctx context.Context, query string) error
}

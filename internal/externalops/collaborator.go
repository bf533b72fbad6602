package externalops

import (
	"context"

	"github.com/fyrsmithlabs/criticality/internal/notify"
	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// Collaborator composes the individual adapters (model calls, build/test,
// archival) plus a NotificationService into a single Operations value the
// orchestrator can be wired against. Any field may be left nil; a nil
// Model, Build, or Archiver makes the corresponding call report a
// non-recoverable failure rather than panicking, so a partially configured
// collaborator fails loud instead of silent. A nil Notifier makes
// SendBlockingNotification a no-op that returns nil.
type Collaborator struct {
	Model    *ModelCaller
	Build    *BuildRunner
	Archiver *GitArchiver
	Notifier notify.Service
}

// NewCollaborator wires the given adapters into one Operations value.
func NewCollaborator(model *ModelCaller, build *BuildRunner, archiver *GitArchiver, notifier notify.Service) *Collaborator {
	return &Collaborator{Model: model, Build: build, Archiver: archiver, Notifier: notifier}
}

func unconfigured(name string) (ActionResult, error) {
	return ActionResult{Success: false, Error: "no " + name + " collaborator configured", Recoverable: false}, nil
}

// ExecuteModelCall delegates to the configured ModelCaller.
func (c *Collaborator) ExecuteModelCall(ctx context.Context, p phase.Phase) (ActionResult, error) {
	if c.Model == nil {
		return unconfigured("model")
	}
	return c.Model.ExecuteModelCall(ctx, p)
}

// RunCompilation delegates to the configured BuildRunner.
func (c *Collaborator) RunCompilation(ctx context.Context) (ActionResult, error) {
	if c.Build == nil {
		return unconfigured("build")
	}
	return c.Build.RunCompilation(ctx)
}

// RunTests delegates to the configured BuildRunner.
func (c *Collaborator) RunTests(ctx context.Context) (ActionResult, error) {
	if c.Build == nil {
		return unconfigured("build")
	}
	return c.Build.RunTests(ctx)
}

// ArchivePhaseArtifacts delegates to the configured GitArchiver.
func (c *Collaborator) ArchivePhaseArtifacts(ctx context.Context, p phase.Phase) (ActionResult, error) {
	if c.Archiver == nil {
		return unconfigured("archive")
	}
	return c.Archiver.ArchivePhaseArtifacts(ctx, p)
}

// SendBlockingNotification tells the configured NotificationService about a
// block event. Delivery failures are the collaborator contract's
// responsibility to absorb; the orchestrator never sees them.
func (c *Collaborator) SendBlockingNotification(ctx context.Context, query string) error {
	if c.Notifier == nil {
		return nil
	}
	return c.Notifier.Notify(ctx, notify.EventBlock, notify.Payload{Query: query})
}

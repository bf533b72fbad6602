package externalops

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// TaskQueue is the Temporal task queue criticality workers listen on.
const TaskQueue = "criticality-externalops"

// ModelCallActivityInput names the phase a durable model-call activity
// should execute.
type ModelCallActivityInput struct {
	Phase phase.Phase
}

// ArchiveActivityInput names the phase a durable archival activity should
// commit.
type ArchiveActivityInput struct {
	Phase phase.Phase
}

// ModelCallActivity, CompileActivity, TestActivity, and ArchiveActivity are
// the Temporal activity functions a worker registers. Each wraps the plain
// (non-durable) adapters so retries and worker crashes are Temporal's
// concern, not the kernel's: the kernel itself stays synchronous, only the
// collaborator fan-out goes through Temporal here.
func ModelCallActivity(ctx context.Context, caller *ModelCaller, in ModelCallActivityInput) (ActionResult, error) {
	return caller.ExecuteModelCall(ctx, in.Phase)
}

func CompileActivity(ctx context.Context, runner *BuildRunner) (ActionResult, error) {
	return runner.RunCompilation(ctx)
}

func TestActivity(ctx context.Context, runner *BuildRunner) (ActionResult, error) {
	return runner.RunTests(ctx)
}

func ArchiveActivity(ctx context.Context, archiver *GitArchiver, in ArchiveActivityInput) (ActionResult, error) {
	return archiver.ArchivePhaseArtifacts(ctx, in.Phase)
}

// RegisterWorker registers the four collaborator activities against w,
// closing over the concrete adapters they delegate to. Grounded on
// internal/workflows/autonomous/workflow.go's phase-sequenced activity
// calls, adapted from a multi-phase development workflow to a single-call-
// per-tick collaborator.
func RegisterWorker(w worker.Worker, model *ModelCaller, build *BuildRunner, archiver *GitArchiver) {
	w.RegisterActivityWithOptions(
		func(ctx context.Context, in ModelCallActivityInput) (ActionResult, error) {
			return ModelCallActivity(ctx, model, in)
		},
		activity.RegisterOptions{Name: "ExecuteModelCall"},
	)
	w.RegisterActivityWithOptions(
		func(ctx context.Context) (ActionResult, error) { return CompileActivity(ctx, build) },
		activity.RegisterOptions{Name: "RunCompilation"},
	)
	w.RegisterActivityWithOptions(
		func(ctx context.Context) (ActionResult, error) { return TestActivity(ctx, build) },
		activity.RegisterOptions{Name: "RunTests"},
	)
	w.RegisterActivityWithOptions(
		func(ctx context.Context, in ArchiveActivityInput) (ActionResult, error) {
			return ArchiveActivity(ctx, archiver, in)
		},
		activity.RegisterOptions{Name: "ArchivePhaseArtifacts"},
	)
}

// durableCallWorkflow executes exactly one named activity and returns its
// result — the thinnest possible workflow shape for wrapping a single
// collaborator call in Temporal's durability.
func durableCallWorkflow(ctx workflow.Context, activityName string, arg any) (ActionResult, error) {
	opts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, opts)

	var result ActionResult
	err := workflow.ExecuteActivity(ctx, activityName, arg).Get(ctx, &result)
	return result, err
}

// ModelCallWorkflow, CompileWorkflow, TestWorkflow, and ArchiveWorkflow are
// the Temporal workflow entrypoints TemporalOperations starts for each
// collaborator call.
func ModelCallWorkflow(ctx workflow.Context, in ModelCallActivityInput) (ActionResult, error) {
	return durableCallWorkflow(ctx, "ExecuteModelCall", in)
}

func CompileWorkflow(ctx workflow.Context) (ActionResult, error) {
	return durableCallWorkflow(ctx, "RunCompilation", nil)
}

func TestWorkflow(ctx workflow.Context) (ActionResult, error) {
	return durableCallWorkflow(ctx, "RunTests", nil)
}

func ArchiveWorkflow(ctx workflow.Context, in ArchiveActivityInput) (ActionResult, error) {
	return durableCallWorkflow(ctx, "ArchivePhaseArtifacts", in)
}

// TemporalOperations is an Operations implementation that dispatches each
// collaborator call as a short-lived Temporal workflow, giving operators a
// durable-across-worker-crash collaborator side without making the kernel
// itself asynchronous. SendBlockingNotification is not durable — it is
// best-effort by contract so it calls straight through.
type TemporalOperations struct {
	Client   client.Client
	Notifier func(ctx context.Context, query string) error
}

// NewTemporalOperations returns a TemporalOperations dispatching workflows
// through c.
func NewTemporalOperations(c client.Client) *TemporalOperations {
	return &TemporalOperations{Client: c}
}

func (t *TemporalOperations) startOptions(workflowID string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{ID: workflowID, TaskQueue: TaskQueue}
}

func (t *TemporalOperations) ExecuteModelCall(ctx context.Context, p phase.Phase) (ActionResult, error) {
	run, err := t.Client.ExecuteWorkflow(ctx, t.startOptions("criticality-model-"+string(p)), ModelCallWorkflow, ModelCallActivityInput{Phase: p})
	if err != nil {
		return ActionResult{}, err
	}
	var result ActionResult
	err = run.Get(ctx, &result)
	return result, err
}

func (t *TemporalOperations) RunCompilation(ctx context.Context) (ActionResult, error) {
	run, err := t.Client.ExecuteWorkflow(ctx, t.startOptions("criticality-compile"), CompileWorkflow)
	if err != nil {
		return ActionResult{}, err
	}
	var result ActionResult
	err = run.Get(ctx, &result)
	return result, err
}

func (t *TemporalOperations) RunTests(ctx context.Context) (ActionResult, error) {
	run, err := t.Client.ExecuteWorkflow(ctx, t.startOptions("criticality-tests"), TestWorkflow)
	if err != nil {
		return ActionResult{}, err
	}
	var result ActionResult
	err = run.Get(ctx, &result)
	return result, err
}

func (t *TemporalOperations) ArchivePhaseArtifacts(ctx context.Context, p phase.Phase) (ActionResult, error) {
	run, err := t.Client.ExecuteWorkflow(ctx, t.startOptions("criticality-archive-"+string(p)), ArchiveWorkflow, ArchiveActivityInput{Phase: p})
	if err != nil {
		return ActionResult{}, err
	}
	var result ActionResult
	err = run.Get(ctx, &result)
	return result, err
}

func (t *TemporalOperations) SendBlockingNotification(ctx context.Context, query string) error {
	if t.Notifier == nil {
		return nil
	}
	return t.Notifier(ctx, query)
}

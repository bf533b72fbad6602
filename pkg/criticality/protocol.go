// Package criticality is the public facade wiring the synthesis protocol's
// four core subsystems — phase state machine, decision ledger, contradiction
// regression, and checkpoint/resume — plus the tick orchestrator into one
// value an embedding program drives one tick, or one full Run, at a time.
package criticality

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/criticality/internal/checkpoint"
	"github.com/fyrsmithlabs/criticality/internal/config"
	"github.com/fyrsmithlabs/criticality/internal/externalops"
	"github.com/fyrsmithlabs/criticality/internal/ledger"
	"github.com/fyrsmithlabs/criticality/internal/logging"
	"github.com/fyrsmithlabs/criticality/internal/notify"
	"github.com/fyrsmithlabs/criticality/internal/orchestrator"
	"github.com/fyrsmithlabs/criticality/internal/phase"
	"github.com/fyrsmithlabs/criticality/internal/regression"
	"go.uber.org/zap"
)

// Protocol owns one synthesis-protocol instance: its snapshot, ledger,
// checkpoint service, and collaborators. There are no ambient singletons;
// every operation takes an explicit *Protocol receiver.
type Protocol struct {
	Snapshot    phase.StateSnapshot
	Ledger      *ledger.Ledger
	ProjectRoot string

	Checkpoint *checkpoint.Service
	LedgerFile *ledger.FileStore
	Ops        externalops.Operations
	Notifier   notify.Service
	Logger     *logging.Logger
	Metrics    *orchestrator.Metrics

	// ticks counts Tick calls over this instance's lifetime, for log
	// correlation.
	ticks int
}

// Options configures New.
type Options struct {
	Config *config.Config
	Ops    externalops.Operations
	Logger *logging.Logger
}

// New constructs a Protocol from cfg, loading whatever checkpoint and
// ledger files already exist at the configured paths (a fresh Ignition
// state and empty ledger if none do).
func New(opts Options) (*Protocol, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("criticality: config is required")
	}

	ckptSvc := checkpoint.NewService(checkpoint.Config{
		Path:            cfg.Paths.StateFile,
		MaxAgeMs:        cfg.Thresholds.StalenessMaxAgeMs,
		AllowStaleState: true,
		Pretty:          true,
	})

	startup, err := ckptSvc.GetStartupState()
	if err != nil {
		return nil, fmt.Errorf("criticality: loading checkpoint: %w", err)
	}

	ledgerStore := ledger.NewFileStore(cfg.Paths.LedgerFile, cfg.Paths.ProjectRoot)
	led, err := ledgerStore.Load()
	if err != nil {
		led = ledger.New()
	}

	p := &Protocol{
		Snapshot:    startup.Snapshot,
		Ledger:      led,
		ProjectRoot: cfg.Paths.ProjectRoot,
		Checkpoint:  ckptSvc,
		LedgerFile:  ledgerStore,
		Ops:         opts.Ops,
		Logger:      opts.Logger,
	}
	return p, nil
}

// Tick advances the protocol by at most one transition. The snapshot is
// saved through the checkpoint when the tick changes state, and the ledger
// is saved after every tick. The phase and tick number ride on ctx
// so every log line emitted below this point carries them.
func (p *Protocol) Tick(ctx context.Context, pending *phase.BlockingResolution) (orchestrator.TickResult, error) {
	p.ticks++
	ctx = logging.WithPhase(ctx, string(currentPhaseOf(p.Snapshot)))
	ctx = logging.WithTick(ctx, p.ticks)

	tc := orchestrator.TickContext{
		Snapshot:          p.Snapshot,
		ProjectRoot:       p.ProjectRoot,
		Ledger:            p.Ledger,
		Ops:               p.Ops,
		Notifier:          p.Notifier,
		Checkpoint:        p.Checkpoint,
		PendingResolution: pending,
	}

	var result orchestrator.TickResult
	var err error
	if p.Metrics != nil {
		result, err = orchestrator.TracedTick(ctx, tc, p.Metrics)
	} else {
		result, err = orchestrator.Tick(ctx, tc)
	}
	p.Snapshot = result.Context.Snapshot
	if saveErr := p.LedgerFile.Save(p.Ledger); saveErr != nil && p.Logger != nil {
		p.Logger.Warn(ctx, "failed to persist ledger after tick", zap.Error(saveErr))
	}
	return result, err
}

// Run drives Tick until a terminal outcome or maxTicks is exhausted,
// going through Tick itself so every iteration gets the same correlation,
// metrics, and persistence as a caller-driven tick. Exhausting maxTicks
// without a terminal outcome is reported as EXTERNAL_ERROR, matching
// orchestrator.Run.
func (p *Protocol) Run(ctx context.Context, maxTicks int) (orchestrator.RunResult, error) {
	var last orchestrator.TickResult
	for i := 0; i < maxTicks; i++ {
		result, err := p.Tick(ctx, nil)
		if err != nil {
			return orchestrator.RunResult{Context: result.Context, Outcome: orchestrator.OutcomeFailed, TickCount: i + 1}, err
		}
		if result.Outcome != orchestrator.OutcomeContinue {
			return orchestrator.RunResult{Context: result.Context, Outcome: result.Outcome, TickCount: i + 1}, nil
		}
		last = result
	}
	return orchestrator.RunResult{Context: last.Context, Outcome: orchestrator.OutcomeExternalError, TickCount: maxTicks}, nil
}

// HandleContradictions classifies and applies an external auditor's
// contradiction report, regressing the protocol or entering Blocking.
func (p *Protocol) HandleContradictions(contradictions []regression.Contradiction, opts regression.Options) (regression.Result, error) {
	currentPhase := currentPhaseOf(p.Snapshot)
	opts.CurrentPhase = currentPhase

	result, err := regression.HandlePhaseRegression(contradictions, p.Ledger, opts)
	if err != nil {
		return regression.Result{}, err
	}
	if result.Kind == regression.KindBlocked {
		p.Snapshot.State = result.State
		p.Snapshot.BlockingQueries = append(p.Snapshot.BlockingQueries, phase.BlockingRecord{
			ID:        uuid.NewString(),
			Phase:     currentPhase,
			Query:     result.State.(phase.BlockingState).Query,
			Options:   result.Options,
			BlockedAt: result.State.(phase.BlockingState).BlockedAt,
		})
	}
	return result, nil
}

// Resolve feeds a human response to the outstanding blocking query forward
// so the next Tick can resume.
func (p *Protocol) Resolve(resolution phase.BlockingResolution) (orchestrator.TickResult, error) {
	return p.Tick(context.Background(), &resolution)
}

func currentPhaseOf(s phase.StateSnapshot) phase.Phase {
	switch st := s.State.(type) {
	case phase.ActiveState:
		return st.Phase
	case phase.BlockingState:
		return st.Phase
	case phase.FailedState:
		return st.Phase
	case phase.CompleteState:
		return phase.Complete
	default:
		return phase.Ignition
	}
}

package orchestrator

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/criticality/internal/notify"
	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// bestEffortNotify calls the configured Notifier, if any, and swallows any
// error — a failed notification must never affect protocol state.
func bestEffortNotify(ctx context.Context, tc TickContext, event notify.Event, payload notify.Payload) {
	if tc.Notifier == nil {
		return
	}
	_ = tc.Notifier.Notify(ctx, event, payload)
}

// persist saves the snapshot through Checkpoint, if configured. A save
// failure is propagated: an unpersisted state change is not safe to treat
// as having happened.
func persist(tc TickContext) error {
	if tc.Checkpoint == nil {
		return nil
	}
	return tc.Checkpoint.Save(tc.Snapshot)
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
		return ""
	}
}

// Tick advances the protocol by at most one transition, following the
// single-tick procedure: evaluate substate, optionally invoke one external
// operation, mutate in-memory state, persist, notify.
func Tick(ctx context.Context, tc TickContext) (TickResult, error) {
	switch st := tc.Snapshot.State.(type) {
	case phase.CompleteState:
		bestEffortNotify(ctx, tc, notify.EventComplete, notify.Payload{Phase: string(phase.Complete)})
		return TickResult{Context: tc, Outcome: OutcomeComplete}, nil

	case phase.FailedState:
		bestEffortNotify(ctx, tc, notify.EventError, notify.Payload{Phase: string(st.Phase), Error: st.Error})
		return TickResult{Context: tc, Outcome: OutcomeFailed}, nil

	case phase.BlockingState:
		return tickBlocking(ctx, tc, st)

	case phase.ActiveState:
		return tickActive(ctx, tc, st)

	default:
		return TickResult{Context: tc, Outcome: OutcomeFailed}, nil
	}
}

func tickBlocking(ctx context.Context, tc TickContext, st phase.BlockingState) (TickResult, error) {
	if st.TimeoutMs != nil {
		elapsed := time.Since(st.BlockedAt).Milliseconds()
		if elapsed > *st.TimeoutMs {
			tc.Snapshot.State = phase.FailedState{
				Phase:       st.Phase,
				Error:       "blocking query timed out",
				Code:        "TIMEOUT",
				Recoverable: true,
				FailedAt:    time.Now(),
			}
			if err := persist(tc); err != nil {
				return TickResult{Context: tc}, err
			}
			bestEffortNotify(ctx, tc, notify.EventError, notify.Payload{Phase: string(st.Phase), Error: "blocking query timed out"})
			return TickResult{Context: tc, Outcome: OutcomeFailed}, nil
		}
	}

	if tc.PendingResolution != nil {
		tc.Snapshot.State = phase.ActiveState{Phase: st.Phase, Substate: "entered"}
		markResolved(&tc.Snapshot, st, *tc.PendingResolution)
		tc.PendingResolution = nil
		if err := persist(tc); err != nil {
			return TickResult{Context: tc}, err
		}
		return TickResult{Context: tc, Outcome: OutcomeContinue}, nil
	}

	return TickResult{Context: tc, Outcome: OutcomeBlocked}, nil
}

// markResolved records the human resolution against the matching
// outstanding BlockingRecord, making it immutable from this point on.
func markResolved(s *phase.StateSnapshot, st phase.BlockingState, resolution phase.BlockingResolution) {
	for i := range s.BlockingQueries {
		r := &s.BlockingQueries[i]
		if !r.Resolved && r.Phase == st.Phase && r.Query == st.Query {
			r.Resolved = true
			resolved := resolution
			r.Resolution = &resolved
			return
		}
	}
}

func tickActive(ctx context.Context, tc TickContext, st phase.ActiveState) (TickResult, error) {
	candidates := phase.ValidTargets(st.Phase)
	if len(candidates) == 0 {
		return TickResult{Context: tc, Outcome: OutcomeNoValidTransition}, nil
	}

	if result, ok, err := attemptSatisfiedTarget(ctx, tc, st.Phase, candidates); ok || err != nil {
		return result, err
	}

	if tc.Ops == nil {
		return TickResult{Context: tc, Outcome: OutcomeContinue}, nil
	}

	opResult, err := tc.Ops.ExecuteModelCall(ctx, st.Phase)
	if err != nil {
		return TickResult{Context: tc}, err
	}
	tc.Snapshot.Artifacts = mergeArtifacts(tc.Snapshot.Artifacts, opResult.Artifacts)

	if !opResult.Success {
		tc.Snapshot.State = phase.FailedState{
			Phase:       st.Phase,
			Error:       opResult.Error,
			Recoverable: opResult.Recoverable,
			FailedAt:    time.Now(),
		}
		if err := persist(tc); err != nil {
			return TickResult{Context: tc}, err
		}
		bestEffortNotify(ctx, tc, notify.EventError, notify.Payload{Phase: string(st.Phase), Error: opResult.Error})
		return TickResult{Context: tc, Outcome: OutcomeFailed}, nil
	}

	if result, ok, err := attemptSatisfiedTarget(ctx, tc, st.Phase, candidates); ok || err != nil {
		return result, err
	}

	return TickResult{Context: tc, Outcome: OutcomeContinue}, nil
}

// attemptSatisfiedTarget walks candidates in declaration order and performs
// the first transition whose artifact precondition is already satisfied by
// tc.Snapshot. ok is false when no candidate's precondition currently holds.
func attemptSatisfiedTarget(ctx context.Context, tc TickContext, from phase.Phase, candidates []phase.Phase) (TickResult, bool, error) {
	for _, target := range candidates {
		required, exists := phase.RequiredArtifacts(from, target)
		if !exists {
			continue
		}
		if !HasArtifacts(required...)(tc) {
			continue
		}

		result, err := phase.Transition(tc.Snapshot.State, target, tc.Snapshot.Artifacts, tc.ProjectRoot)
		if err != nil {
			return TickResult{Context: tc}, true, err
		}

		tc.Snapshot.State = result.State
		if err := persist(tc); err != nil {
			return TickResult{Context: tc}, true, err
		}

		if target != from {
			bestEffortNotify(ctx, tc, notify.EventPhaseChange, notify.Payload{Phase: string(target)})
		}

		if target == phase.Complete {
			return TickResult{Context: tc, Outcome: OutcomeComplete}, true, nil
		}
		return TickResult{Context: tc, Outcome: OutcomeContinue}, true, nil
	}
	return TickResult{}, false, nil
}

func mergeArtifacts(have []phase.ArtifactType, produced []phase.ArtifactType) []phase.ArtifactType {
	seen := make(map[phase.ArtifactType]bool, len(have))
	for _, a := range have {
		seen[a] = true
	}
	out := append([]phase.ArtifactType(nil), have...)
	for _, a := range produced {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

package orchestrator

import "github.com/fyrsmithlabs/criticality/internal/phase"

// Action is a pure transformation of TickContext. Actions compose the tick
// procedure's in-memory mutation step; persistence and notification happen
// around them, never inside them.
type Action func(tc TickContext) (TickContext, error)

// Sequence runs each action in order, threading the resulting TickContext
// forward and stopping at the first error.
func Sequence(actions ...Action) Action {
	return func(tc TickContext) (TickContext, error) {
		var err error
		for _, a := range actions {
			tc, err = a(tc)
			if err != nil {
				return tc, err
			}
		}
		return tc, nil
	}
}

// ProduceArtifacts appends the given artifacts to the snapshot, skipping
// any already present.
func ProduceArtifacts(artifacts ...phase.ArtifactType) Action {
	return func(tc TickContext) (TickContext, error) {
		for _, a := range artifacts {
			if !tc.Snapshot.HasArtifact(a) {
				tc.Snapshot.Artifacts = append(tc.Snapshot.Artifacts, a)
			}
		}
		return tc, nil
	}
}

// Noop returns tc unchanged.
func Noop(tc TickContext) (TickContext, error) { return tc, nil }

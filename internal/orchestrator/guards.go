package orchestrator

import "github.com/fyrsmithlabs/criticality/internal/phase"

// Guard is a pure predicate over TickContext. Guards never mutate state;
// they only decide whether an Action may run.
type Guard func(tc TickContext) bool

// And is true when every guard is true; an empty list is vacuously true.
func And(guards ...Guard) Guard {
	return func(tc TickContext) bool {
		for _, g := range guards {
			if !g(tc) {
				return false
			}
		}
		return true
	}
}

// Or is true when any guard is true; an empty list is vacuously false.
func Or(guards ...Guard) Guard {
	return func(tc TickContext) bool {
		for _, g := range guards {
			if g(tc) {
				return true
			}
		}
		return false
	}
}

// Not negates g.
func Not(g Guard) Guard {
	return func(tc TickContext) bool { return !g(tc) }
}

// Always is the guard that never blocks.
func Always(TickContext) bool { return true }

// Never is the guard that always blocks.
func Never(TickContext) bool { return false }

// HasArtifacts is true when every named artifact is present in the
// snapshot.
func HasArtifacts(required ...phase.ArtifactType) Guard {
	return func(tc TickContext) bool {
		for _, a := range required {
			if !tc.Snapshot.HasArtifact(a) {
				return false
			}
		}
		return true
	}
}

// IsActive is true when the snapshot's current state is Active.
func IsActive(tc TickContext) bool {
	return tc.Snapshot.State.Kind() == phase.KindActive
}

// BlockingResolved is true when the snapshot is Blocking and a resolution
// for it has arrived.
func BlockingResolved(tc TickContext) bool {
	return tc.Snapshot.State.Kind() == phase.KindBlocking && tc.PendingResolution != nil
}

package phase

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/criticality/internal/archive"
)

type edge struct {
	From, To Phase
}

// forward is the authoritative forward-progression table.
var forward = map[Phase]Phase{
	Ignition:         Lattice,
	Lattice:          CompositionAudit,
	CompositionAudit: Injection,
	Injection:        Mesoscopic,
	Mesoscopic:       MassDefect,
	MassDefect:       Complete,
}

// failureTargets is the authoritative rollback table.
var failureTargets = map[Phase]Phase{
	CompositionAudit: Ignition,
	Injection:        Lattice,
	Mesoscopic:       Injection,
}

// requiredForward lists the artifacts that must already be available to
// enter a phase via forward progression, keyed by the target phase.
var requiredForward = map[Phase][]ArtifactType{
	Lattice:          {ArtifactSpec},
	CompositionAudit: {ArtifactLatticeCode, ArtifactWitnesses, ArtifactContracts},
	Injection:        {ArtifactValidatedStructure},
	Mesoscopic:       {ArtifactImplementedCode},
	MassDefect:       {ArtifactVerifiedCode},
	Complete:         {ArtifactFinalArtifact},
}

// requiredFailure lists the artifacts required for each specific failure
// transition, keyed by the (from, to) edge since the same target phase can
// be reached by forward progression with a different artifact requirement.
var requiredFailure = map[edge][]ArtifactType{
	{CompositionAudit, Ignition}: {ArtifactContradictionReport},
	{Injection, Lattice}:         {ArtifactStructuralDefectReport},
	{Mesoscopic, Injection}:      {ArtifactClusterFailureReport},
}

// initialSubstate names the intra-phase step every Active state begins in
// immediately after a successful transition.
func initialSubstate(p Phase) string {
	return "entered"
}

// ValidTargets returns the set of phases reachable from p by forward
// progression or failure rollback, in declaration order: forward first,
// then failure.
func ValidTargets(p Phase) []Phase {
	var out []Phase
	if t, ok := forward[p]; ok {
		out = append(out, t)
	}
	if t, ok := failureTargets[p]; ok {
		out = append(out, t)
	}
	return out
}

// RequiredArtifacts returns the artifacts required to move from-to-to, and
// whether that edge exists at all.
func RequiredArtifacts(from, to Phase) ([]ArtifactType, bool) {
	if fwd, ok := forward[from]; ok && fwd == to {
		return requiredForward[to], true
	}
	if fail, ok := failureTargets[from]; ok && fail == to {
		return requiredFailure[edge{from, to}], true
	}
	return nil, false
}

// CumulativeRequiredArtifacts returns the union of every artifact that must
// already have been produced for the protocol to have legitimately reached
// p by forward progression — used by Checkpoint's integrity stage to flag a
// resumed snapshot that is missing artifacts its recorded phase implies.
func CumulativeRequiredArtifacts(p Phase) []ArtifactType {
	idx := Index(p)
	if idx < 0 {
		return nil
	}
	seen := make(map[ArtifactType]bool)
	var out []ArtifactType
	for i := 1; i <= idx; i++ {
		for _, a := range requiredForward[order[i]] {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// Result is the outcome of a successful transition.
type Result struct {
	State       ProtocolState
	ContextShed bool
}

// available is a set-like view over the artifacts the caller currently has.
type available map[ArtifactType]bool

func missing(required []ArtifactType, have available) []ArtifactType {
	var out []ArtifactType
	for _, a := range required {
		if !have[a] {
			out = append(out, a)
		}
	}
	return out
}

// Transition evaluates the guarded move from state to targetPhase given the
// currently available artifacts, and (on success) performs context shedding
// under projectRoot. Preconditions are checked in the order the protocol's
// state machine mandates.
func Transition(state ProtocolState, targetPhase Phase, availableArtifacts []ArtifactType, projectRoot string) (Result, error) {
	if state.Kind() == KindComplete {
		return Result{}, newError(CodeAlreadyComplete, "protocol has already reached Complete")
	}

	active, ok := state.(ActiveState)
	if !ok {
		switch state.Kind() {
		case KindBlocking:
			return Result{}, newError(CodeBlockedState, "protocol is halted awaiting human input")
		case KindFailed:
			return Result{}, newError(CodeFailedState, "protocol has failed and requires recovery")
		default:
			return Result{}, newError(CodeStateNotActive, "only an Active state may initiate a transition")
		}
	}

	from := active.Phase
	required, exists := RequiredArtifacts(from, targetPhase)
	if !exists {
		fromIdx, toIdx := Index(from), Index(targetPhase)
		if toIdx < 0 {
			return Result{}, newError(CodeInvalidTransition, fmt.Sprintf("%q is not a known phase", targetPhase))
		}
		if toIdx > fromIdx+1 {
			return Result{}, newError(CodeInvalidTransition,
				fmt.Sprintf("Cannot skip phases: %s cannot move directly to %s", from, targetPhase))
		}
		return Result{}, newError(CodeInvalidTransition,
			fmt.Sprintf("%s is not a valid failure transition from %s", targetPhase, from))
	}

	have := make(available, len(availableArtifacts))
	for _, a := range availableArtifacts {
		have[a] = true
	}
	if miss := missing(required, have); len(miss) > 0 {
		return Result{}, &TransitionError{
			Code:    CodeMissingArtifacts,
			Message: fmt.Sprintf("entering %s requires artifacts not yet produced", targetPhase),
			Missing: miss,
		}
	}

	_, shed := archive.Shed(projectRoot, string(from), string(targetPhase), time.Now())

	var newState ProtocolState
	if targetPhase == Complete {
		newState = CompleteState{Artifacts: append([]ArtifactType(nil), availableArtifacts...)}
	} else {
		newState = ActiveState{Phase: targetPhase, Substate: initialSubstate(targetPhase)}
	}
	return Result{State: newState, ContextShed: shed}, nil
}

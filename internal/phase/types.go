// Package phase owns the protocol's phase ordering, the tagged ProtocolState
// union, and the guarded transition table described in the synthesis
// protocol's state machine.
package phase

import "time"

// Phase is one of the seven named stages of the synthesis protocol, in
// forward order. Complete is terminal.
type Phase string

const (
	Ignition         Phase = "Ignition"
	Lattice          Phase = "Lattice"
	CompositionAudit Phase = "CompositionAudit"
	Injection        Phase = "Injection"
	Mesoscopic       Phase = "Mesoscopic"
	MassDefect       Phase = "MassDefect"
	Complete         Phase = "Complete"
)

// order fixes forward progression and "skip" detection.
var order = []Phase{Ignition, Lattice, CompositionAudit, Injection, Mesoscopic, MassDefect, Complete}

// AllPhases returns the phases in forward order.
func AllPhases() []Phase {
	out := make([]Phase, len(order))
	copy(out, order)
	return out
}

// Index returns p's position in the forward order, or -1 if p is unknown.
func Index(p Phase) int {
	for i, ph := range order {
		if ph == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the seven named phases.
func Valid(p Phase) bool {
	return Index(p) >= 0
}

// ArtifactType is the closed set of deliverables that gate phase entry.
type ArtifactType string

const (
	ArtifactSpec                   ArtifactType = "spec"
	ArtifactLatticeCode            ArtifactType = "latticeCode"
	ArtifactWitnesses              ArtifactType = "witnesses"
	ArtifactContracts              ArtifactType = "contracts"
	ArtifactValidatedStructure     ArtifactType = "validatedStructure"
	ArtifactImplementedCode        ArtifactType = "implementedCode"
	ArtifactVerifiedCode           ArtifactType = "verifiedCode"
	ArtifactFinalArtifact          ArtifactType = "finalArtifact"
	ArtifactContradictionReport    ArtifactType = "contradictionReport"
	ArtifactStructuralDefectReport ArtifactType = "structuralDefectReport"
	ArtifactClusterFailureReport   ArtifactType = "clusterFailureReport"
)

// KnownArtifact reports whether a is one of the closed ArtifactType values.
func KnownArtifact(a ArtifactType) bool {
	switch a {
	case ArtifactSpec, ArtifactLatticeCode, ArtifactWitnesses, ArtifactContracts,
		ArtifactValidatedStructure, ArtifactImplementedCode, ArtifactVerifiedCode,
		ArtifactFinalArtifact, ArtifactContradictionReport, ArtifactStructuralDefectReport,
		ArtifactClusterFailureReport:
		return true
	}
	return false
}

// StateKind distinguishes the four mutually exclusive ProtocolState variants.
type StateKind string

const (
	KindActive   StateKind = "Active"
	KindBlocking StateKind = "Blocking"
	KindFailed   StateKind = "Failed"
	KindComplete StateKind = "Complete"
)

// ProtocolState is the exhaustive sum type of protocol runtime state.
// Exactly one variant is ever live for a given snapshot.
type ProtocolState interface {
	Kind() StateKind
	isProtocolState()
}

// ActiveState is the only variant from which a transition may be initiated.
type ActiveState struct {
	Phase    Phase
	Substate string
}

func (ActiveState) Kind() StateKind  { return KindActive }
func (ActiveState) isProtocolState() {}

// BlockingResolution is the human response that ends a BlockingState.
type BlockingResolution struct {
	QueryID    string
	Response   string
	Rationale  string
	ResolvedAt time.Time
}

// BlockingState halts the protocol awaiting human input.
type BlockingState struct {
	Phase     Phase
	Query     string
	Options   []string
	TimeoutMs *int64
	BlockedAt time.Time
	Reason    string
}

func (BlockingState) Kind() StateKind  { return KindBlocking }
func (BlockingState) isProtocolState() {}

// FailedState surfaces an error; Recoverable governs whether a failure
// transition can still move the protocol forward.
type FailedState struct {
	Phase       Phase
	Error       string
	Code        string
	Recoverable bool
	FailedAt    time.Time
	Context     map[string]any
}

func (FailedState) Kind() StateKind  { return KindFailed }
func (FailedState) isProtocolState() {}

// CompleteState is terminal; it has no outgoing transitions.
type CompleteState struct {
	Artifacts []ArtifactType
}

func (CompleteState) Kind() StateKind  { return KindComplete }
func (CompleteState) isProtocolState() {}

// BlockingRecord is an append-only record of a human query raised by the
// protocol. It becomes immutable once Resolved is true.
type BlockingRecord struct {
	ID         string
	Phase      Phase
	Query      string
	Options    []string
	BlockedAt  time.Time
	TimeoutMs  *int64
	Resolved   bool
	Resolution *BlockingResolution
}

// StateSnapshot is the full persisted unit: current state, every artifact
// produced so far (ordered), and every blocking query ever raised (ordered).
type StateSnapshot struct {
	State           ProtocolState
	Artifacts       []ArtifactType
	BlockingQueries []BlockingRecord
}

// HasArtifact reports whether a appears anywhere in the snapshot's artifact
// sequence.
func (s StateSnapshot) HasArtifact(a ArtifactType) bool {
	for _, got := range s.Artifacts {
		if got == a {
			return true
		}
	}
	return false
}

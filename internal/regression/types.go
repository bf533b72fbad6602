// Package regression implements contradiction-driven phase regression:
// classifying contradictions as simple (targeted regression to one earlier
// interview phase) or complex (enter Blocking), while preserving unaffected
// work and downgrading delegated decisions.
package regression

// ElementType is the closed set of contradiction-involved element kinds.
type ElementType string

const (
	ElementConstraint ElementType = "constraint"
	ElementContract   ElementType = "contract"
	ElementWitness    ElementType = "witness"
	ElementClaim      ElementType = "claim"
)

// InvolvedElement is one element named by a Contradiction.
type InvolvedElement struct {
	ElementType ElementType
	ID          string
	Name        string
	Text        string
}

// ContradictionType is the closed set of contradiction kinds an external
// auditor may report.
type ContradictionType string

const (
	ContradictionTemporal              ContradictionType = "temporal"
	ContradictionResource              ContradictionType = "resource"
	ContradictionInvariant             ContradictionType = "invariant"
	ContradictionPreconditionGap       ContradictionType = "precondition_gap"
	ContradictionPostconditionConflict ContradictionType = "postcondition_conflict"
)

// Severity distinguishes whether a contradiction must halt the protocol.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Contradiction is the input the core consumes from an external auditor;
// detecting contradictions is out of scope here.
type Contradiction struct {
	ID              string
	Type            ContradictionType
	Severity        Severity
	Description     string
	Involved        []InvolvedElement
	Analysis        string
	MinimalScenario string
}

// InterviewPhase is the specification-authoring phase set, distinct from
// the protocol's own Phase type.
type InterviewPhase string

const (
	Discovery         InterviewPhase = "Discovery"
	Architecture      InterviewPhase = "Architecture"
	Constraints       InterviewPhase = "Constraints"
	DesignPreferences InterviewPhase = "DesignPreferences"
	Synthesis         InterviewPhase = "Synthesis"
	Approval          InterviewPhase = "Approval"
)

// elementPhase maps an involved element's kind to the interview phase it
// belongs to.
var elementPhase = map[ElementType]InterviewPhase{
	ElementConstraint: Constraints,
	ElementContract:   Architecture,
	ElementWitness:    Architecture,
	ElementClaim:      Discovery,
}

// typePhase maps a contradiction's type to the interview phase it belongs
// to.
var typePhase = map[ContradictionType]InterviewPhase{
	ContradictionTemporal:              Constraints,
	ContradictionResource:              Constraints,
	ContradictionInvariant:             Architecture,
	ContradictionPreconditionGap:       Architecture,
	ContradictionPostconditionConflict: Constraints,
}

// SuggestedResolution is one candidate fix attached to a contradiction by
// analysis.
type SuggestedResolution struct {
	ID                    string
	AffectedPhase         InterviewPhase
	RequiresSpecChange    bool
	AffectedConstraintIDs []string
}

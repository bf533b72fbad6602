package regression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze_PartitionsConstraints(t *testing.T) {
	c := Contradiction{
		ID:   "C1",
		Type: ContradictionResource,
		Involved: []InvolvedElement{
			{ElementType: ElementConstraint, ID: "NF001"},
			{ElementType: ElementConstraint, ID: "NF002"},
		},
	}
	all := []string{"NF001", "NF002", "NF003", "F001", "F002"}

	a := Analyze([]Contradiction{c}, all, nil)

	// Affected and preserved partition the full set.
	assert.Len(t, a.AffectedConstraintIDs, 2)
	assert.Len(t, a.PreservedConstraintIDs, 3)
	assert.Equal(t, len(all), len(a.AffectedConstraintIDs)+len(a.PreservedConstraintIDs))
	for _, id := range a.AffectedConstraintIDs {
		assert.NotContains(t, a.PreservedConstraintIDs, id)
	}
}

func TestAnalyze_SingleContradictionIsSimple(t *testing.T) {
	c := Contradiction{
		ID:       "C1",
		Type:     ContradictionTemporal,
		Involved: []InvolvedElement{{ElementType: ElementConstraint, ID: "NF001"}},
	}
	a := Analyze([]Contradiction{c}, []string{"NF001"}, nil)
	assert.Equal(t, Simple, a.Classification)
	assert.ElementsMatch(t, []InterviewPhase{Constraints}, a.AffectedPhases)
}

func TestAnalyze_MultipleContradictionsAreComplex(t *testing.T) {
	c1 := Contradiction{ID: "C1", Type: ContradictionTemporal,
		Involved: []InvolvedElement{{ElementType: ElementConstraint, ID: "NF001"}}}
	c2 := Contradiction{ID: "C2", Type: ContradictionInvariant,
		Involved: []InvolvedElement{{ElementType: ElementContract, ID: "K1"}}}

	a := Analyze([]Contradiction{c1, c2}, []string{"NF001"}, nil)
	assert.Equal(t, Complex, a.Classification)
}

func TestAnalyze_WidePhaseSpreadIsComplex(t *testing.T) {
	// One contradiction touching claim (Discovery), contract (Architecture),
	// and constraint (Constraints): three affected phases exceeds the
	// two-phase bound even with a single contradiction.
	c := Contradiction{
		ID:   "C1",
		Type: ContradictionTemporal,
		Involved: []InvolvedElement{
			{ElementType: ElementClaim, ID: "CL1"},
			{ElementType: ElementContract, ID: "K1"},
			{ElementType: ElementConstraint, ID: "NF001"},
		},
	}
	a := Analyze([]Contradiction{c}, []string{"NF001"}, nil)
	assert.Equal(t, Complex, a.Classification)
	assert.Len(t, a.AffectedPhases, 3)
}

func TestAnalyze_DowngradeCandidates(t *testing.T) {
	c := Contradiction{
		ID:   "C1",
		Type: ContradictionTemporal,
		Involved: []InvolvedElement{
			{ElementType: ElementConstraint, ID: "NF001"},
			{ElementType: ElementConstraint, ID: "NF002"},
		},
	}
	a := Analyze([]Contradiction{c}, []string{"NF001", "NF002"}, []string{"NF001", "NF009"})

	// Only delegated ids that are actually affected become candidates.
	assert.Equal(t, []string{"NF001"}, a.DowngradeCandidates)
}

func TestBuildResolutions_MajorityPhaseAndIds(t *testing.T) {
	c := Contradiction{
		ID:   "C7",
		Type: ContradictionInvariant,
		Involved: []InvolvedElement{
			{ElementType: ElementContract, ID: "K1"},
			{ElementType: ElementWitness, ID: "W1"},
			{ElementType: ElementConstraint, ID: "NF001"},
		},
	}
	rs := buildResolutions(c)
	assert.Len(t, rs, 1)
	assert.Equal(t, "resolution_C7_1", rs[0].ID)
	assert.Equal(t, Architecture, rs[0].AffectedPhase)
	assert.True(t, rs[0].RequiresSpecChange)
	assert.Equal(t, []string{"NF001"}, rs[0].AffectedConstraintIDs)
}

func TestElementAndTypePhaseMappings(t *testing.T) {
	assert.Equal(t, Constraints, elementPhase[ElementConstraint])
	assert.Equal(t, Architecture, elementPhase[ElementContract])
	assert.Equal(t, Architecture, elementPhase[ElementWitness])
	assert.Equal(t, Discovery, elementPhase[ElementClaim])

	assert.Equal(t, Constraints, typePhase[ContradictionTemporal])
	assert.Equal(t, Constraints, typePhase[ContradictionResource])
	assert.Equal(t, Architecture, typePhase[ContradictionInvariant])
	assert.Equal(t, Architecture, typePhase[ContradictionPreconditionGap])
	assert.Equal(t, Constraints, typePhase[ContradictionPostconditionConflict])
}

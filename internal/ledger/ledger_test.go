package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInput(constraint string, deps ...string) DecisionInput {
	return DecisionInput{
		Category:     CategoryConstraint,
		Constraint:   constraint,
		Source:       SourceUserExplicit,
		Confidence:   ConfidenceProvisional,
		Phase:        PhaseDesign,
		Dependencies: deps,
	}
}

func TestAppend_IdsUniqueAndIncreasing(t *testing.T) {
	l := New()
	var ids []string
	for i := 0; i < 5; i++ {
		d, err := l.Append(baseInput("c"), false)
		require.NoError(t, err)
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{
		"constraint_001", "constraint_002", "constraint_003", "constraint_004", "constraint_005",
	}, ids)
}

func TestInvalidate_CascadeDiamond(t *testing.T) {
	l := New()
	a, err := l.Append(baseInput("A"), false)
	require.NoError(t, err)
	b, err := l.Append(baseInput("B", a.ID), false)
	require.NoError(t, err)
	c, err := l.Append(baseInput("C", a.ID), false)
	require.NoError(t, err)
	d, err := l.Append(baseInput("D", b.ID, c.ID), false)
	require.NoError(t, err)

	report, err := l.Invalidate(a.ID, true, false)
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalInvalidated)
	assert.Len(t, report.Affected, 4)

	for _, id := range []string{a.ID, b.ID, c.ID, d.ID} {
		row, ok := l.GetByID(id)
		require.True(t, ok)
		assert.Equal(t, StatusInvalidated, row.Status)
	}

	depths := map[int]int{}
	for _, e := range report.Affected {
		depths[e.Depth]++
	}
	assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 1}, depths)
}

func TestInvalidate_CascadeProtectsCanonicalDependents(t *testing.T) {
	l := New()
	a, err := l.Append(baseInput("A"), false)
	require.NoError(t, err)

	canonInput := baseInput("canonical B", a.ID)
	canonInput.Confidence = ConfidenceCanonical
	b, err := l.Append(canonInput, false)
	require.NoError(t, err)

	c, err := l.Append(baseInput("C", b.ID), false)
	require.NoError(t, err)

	report, err := l.Invalidate(a.ID, true, false)
	require.NoError(t, err)

	// The canonical dependent stays active, but the walk continues through
	// it: its own dependent is still invalidated.
	assert.Equal(t, 2, report.TotalInvalidated)
	row, _ := l.GetByID(b.ID)
	assert.Equal(t, StatusActive, row.Status)
	row, _ = l.GetByID(c.ID)
	assert.Equal(t, StatusInvalidated, row.Status)
	for _, e := range report.Affected {
		assert.NotEqual(t, b.ID, e.ID)
	}
}

func TestInvalidate_CascadeForceOverridesCanonicalDependents(t *testing.T) {
	l := New()
	a, err := l.Append(baseInput("A"), false)
	require.NoError(t, err)

	canonInput := baseInput("canonical B", a.ID)
	canonInput.Confidence = ConfidenceCanonical
	b, err := l.Append(canonInput, false)
	require.NoError(t, err)

	report, err := l.Invalidate(a.ID, true, true)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalInvalidated)
	row, _ := l.GetByID(b.ID)
	assert.Equal(t, StatusInvalidated, row.Status)
}

func TestSupersede_CanonicalRequiresOverride(t *testing.T) {
	l := New()
	input := baseInput("canon")
	input.Confidence = ConfidenceCanonical
	d1, err := l.Append(input, false)
	require.NoError(t, err)

	_, _, err = l.Supersede(d1.ID, baseInput("new"), false)
	require.Error(t, err)
	var canonErr *CanonicalOverrideError
	require.ErrorAs(t, err, &canonErr)

	old, nw, err := l.Supersede(d1.ID, baseInput("new"), true)
	require.NoError(t, err)
	assert.Equal(t, StatusSuperseded, old.Status)
	assert.Equal(t, nw.ID, old.SupersededBy)
	assert.Contains(t, nw.Supersedes, d1.ID)
}

func TestDowngradeDelegated(t *testing.T) {
	l := New()
	input := baseInput("NF001")
	input.Confidence = ConfidenceDelegated
	d, err := l.Append(input, false)
	require.NoError(t, err)

	require.NoError(t, l.DowngradeDelegated(d.ID, "temporal contradiction"))

	row, _ := l.GetByID(d.ID)
	assert.Equal(t, ConfidenceInferred, row.Confidence)
	assert.Contains(t, row.FailureContext, "Composition Audit contradiction")

	err = l.DowngradeDelegated(d.ID, "again")
	require.Error(t, err)
}

func TestQueryByKeys_RejectsUnknownKey(t *testing.T) {
	l := New()
	_, err := l.QueryByKeys(map[string]string{"bogus": "x"})
	require.Error(t, err)
	var keyErr *InvalidFilterKeyError
	require.ErrorAs(t, err, &keyErr)
	assert.ElementsMatch(t, []string{"category", "phase", "status", "confidence"}, keyErr.Valid)
}

func TestFormatForPrompt_OmitsBlockingAndRationale(t *testing.T) {
	l := New()
	canon := baseInput("visible canonical")
	canon.Confidence = ConfidenceCanonical
	canon.Rationale = "internal reasoning, never injected"
	_, err := l.Append(canon, false)
	require.NoError(t, err)

	blocking := baseInput("must not appear")
	blocking.Confidence = ConfidenceBlocking
	_, err = l.Append(blocking, false)
	require.NoError(t, err)

	sections := l.FormatForPrompt(nil)
	require.Len(t, sections.Canonical, 1)
	assert.Empty(t, sections.Inferred)
	assert.Empty(t, sections.Suspended)
	assert.NotContains(t, sections.Render(), "internal reasoning")
}

func TestGetActiveDecisionsSubsetOfHistory(t *testing.T) {
	l := New()
	d1, err := l.Append(baseInput("one"), false)
	require.NoError(t, err)
	_, err = l.Invalidate(d1.ID, false, false)
	require.NoError(t, err)
	_, err = l.Append(baseInput("two"), false)
	require.NoError(t, err)

	active := l.GetActiveDecisions()
	history := l.GetHistory(true, true)
	assert.Len(t, active, 1)
	assert.Len(t, history, 2)
	for _, a := range active {
		assert.Equal(t, StatusActive, a.Status)
	}
}

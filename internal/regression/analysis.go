package regression

import (
	"fmt"
	"sort"
)

// Classification is the result of analyzing an ordered sequence of
// contradictions.
type Classification string

const (
	Simple  Classification = "simple"
	Complex Classification = "complex"
)

// Analysis is the full output of analyzing contradictions C against the
// currently known constraint ids.
type Analysis struct {
	AffectedConstraintIDs  []string
	AffectedPhases         []InterviewPhase
	PreservedConstraintIDs []string
	DowngradeCandidates    []string
	Classification         Classification
	Resolutions            map[string][]SuggestedResolution // keyed by contradiction id
}

func stringSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func sortedKeys(m map[string]bool) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Analyze classifies contradictions and computes which constraints and
// interview phases they touch. It classifies, never infers: every output
// is a set operation over the inputs.
func Analyze(contradictions []Contradiction, allConstraintIDs []string, delegatedDecisionIDs []string) Analysis {
	affectedConstraints := map[string]bool{}
	affectedPhasesSet := map[InterviewPhase]bool{}
	sharedInvolvedID := false
	seenInvolvedIDs := map[string]string{} // involved id -> owning contradiction id

	for _, c := range contradictions {
		for _, el := range c.Involved {
			if el.ElementType == ElementConstraint {
				affectedConstraints[el.ID] = true
			}
			if ph, ok := elementPhase[el.ElementType]; ok {
				affectedPhasesSet[ph] = true
			}
			if owner, ok := seenInvolvedIDs[el.ID]; ok && owner != c.ID {
				sharedInvolvedID = true
			} else if !ok {
				seenInvolvedIDs[el.ID] = c.ID
			}
		}
		if ph, ok := typePhase[c.Type]; ok {
			affectedPhasesSet[ph] = true
		}
	}

	allSet := stringSet(allConstraintIDs)
	var preserved []string
	for id := range allSet {
		if !affectedConstraints[id] {
			preserved = append(preserved, id)
		}
	}

	delegatedSet := stringSet(delegatedDecisionIDs)
	var downgradeCandidates []string
	for id := range delegatedSet {
		if affectedConstraints[id] {
			downgradeCandidates = append(downgradeCandidates, id)
		}
	}

	classification := Simple
	if len(contradictions) > 1 || len(affectedPhasesSet) > 2 || sharedInvolvedID {
		classification = Complex
	}

	resolutions := make(map[string][]SuggestedResolution, len(contradictions))
	for _, c := range contradictions {
		resolutions[c.ID] = buildResolutions(c)
	}

	return Analysis{
		AffectedConstraintIDs:  sortedKeys(affectedConstraints),
		AffectedPhases:         phaseSetToSlice(affectedPhasesSet),
		PreservedConstraintIDs: preserved,
		DowngradeCandidates:    downgradeCandidates,
		Classification:         classification,
		Resolutions:            resolutions,
	}
}

func phaseSetToSlice(set map[InterviewPhase]bool) []InterviewPhase {
	var out []InterviewPhase
	for p := range set {
		out = append(out, p)
	}
	return out
}

// buildResolutions constructs one SuggestedResolution per contradiction.
func buildResolutions(c Contradiction) []SuggestedResolution {
	majority := majorityPhase(c)
	var constraintIDs []string
	for _, el := range c.Involved {
		if el.ElementType == ElementConstraint {
			constraintIDs = append(constraintIDs, el.ID)
		}
	}
	return []SuggestedResolution{{
		ID:                    fmt.Sprintf("resolution_%s_1", c.ID),
		AffectedPhase:         majority,
		RequiresSpecChange:    true,
		AffectedConstraintIDs: constraintIDs,
	}}
}

// majorityPhase returns the most frequent interview phase among a
// contradiction's involved elements, falling back to the contradiction's
// own type mapping if it has no involved elements. Ties favor the first
// phase encountered, for determinism.
func majorityPhase(c Contradiction) InterviewPhase {
	counts := map[InterviewPhase]int{}
	var firstSeen []InterviewPhase
	for _, el := range c.Involved {
		ph, ok := elementPhase[el.ElementType]
		if !ok {
			continue
		}
		if counts[ph] == 0 {
			firstSeen = append(firstSeen, ph)
		}
		counts[ph]++
	}
	if len(firstSeen) == 0 {
		if ph, ok := typePhase[c.Type]; ok {
			return ph
		}
		return Constraints
	}
	best := firstSeen[0]
	for _, ph := range firstSeen {
		if counts[ph] > counts[best] {
			best = ph
		}
	}
	return best
}

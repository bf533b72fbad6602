package ledger

import (
	"fmt"
	"strings"
)

// FormattedDecision is the prompt-safe projection of a Decision: rationale
// is never included, since it is for human audit only.
type FormattedDecision struct {
	ID         string
	Category   Category
	Constraint string
	Confidence Confidence
}

// PromptSections buckets active decisions for prompt injection. Blocking
// confidence rows are never included in any bucket; they exist only to
// halt the protocol.
type PromptSections struct {
	Canonical []FormattedDecision
	Inferred  []FormattedDecision
	Suspended []FormattedDecision
}

// FormatForPrompt builds the three prompt buckets from the ledger's active
// decisions. If upToPhase is non-nil, only rows from that phase or earlier
// (by the fixed phase order) are considered.
func (l *Ledger) FormatForPrompt(upToPhase *LedgerPhase) PromptSections {
	var maxIdx int = -1
	if upToPhase != nil {
		maxIdx = phaseIndex(*upToPhase)
	}

	var sections PromptSections
	for _, d := range l.GetActiveDecisions() {
		if upToPhase != nil && phaseIndex(d.Phase) > maxIdx {
			continue
		}
		fd := FormattedDecision{ID: d.ID, Category: d.Category, Constraint: d.Constraint, Confidence: d.Confidence}
		switch d.Confidence {
		case ConfidenceCanonical:
			sections.Canonical = append(sections.Canonical, fd)
		case ConfidenceDelegated, ConfidenceInferred, ConfidenceProvisional:
			sections.Inferred = append(sections.Inferred, fd)
		case ConfidenceSuspended:
			sections.Suspended = append(sections.Suspended, fd)
		case ConfidenceBlocking:
			// never injected
		}
	}
	return sections
}

// Render produces a human/model-readable rendition of the sections. It is
// intentionally plain text: the collaborator that builds the full model
// prompt composes this with other context.
func (s PromptSections) Render() string {
	var b strings.Builder
	writeBucket := func(title string, rows []FormattedDecision) {
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, r := range rows {
			fmt.Fprintf(&b, "  - [%s] %s\n", r.ID, r.Constraint)
		}
	}
	writeBucket("CANONICAL", s.Canonical)
	writeBucket("INFERRED", s.Inferred)
	writeBucket("SUSPENDED", s.Suspended)
	return b.String()
}

package regression

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/criticality/internal/ledger"
	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// ErrNoContradictions is returned when handlePhaseRegression is called with
// an empty contradiction sequence.
var ErrNoContradictions = errors.New("NO_CONTRADICTIONS: at least one contradiction is required")

// FailureLogger receives a downgrade attempt that failed; the handler logs
// and continues rather than aborting.
type FailureLogger func(decisionID string, err error)

// Options carries the context Analyze and the handler need beyond the
// contradiction sequence itself.
type Options struct {
	AllConstraintIDs     []string
	DelegatedDecisionIDs []string
	CurrentPhase         phase.Phase
	OnDowngradeFailure   FailureLogger
}

// Kind distinguishes the two outcomes handlePhaseRegression can produce.
type Kind string

const (
	KindRegression Kind = "regression"
	KindBlocked    Kind = "blocked"
)

// Result is the outcome of handling a batch of contradictions.
type Result struct {
	Kind                   Kind
	TargetPhase            InterviewPhase
	RegressionQuestion     string
	AffectedPhases         []InterviewPhase
	AffectedConstraintIDs  []string
	PreservedConstraintIDs []string
	DowngradedDecisionIDs  []string
	State                  phase.ProtocolState // set only when Kind == KindBlocked
	Options                []string            // set only when Kind == KindBlocked
}

func protocolPhaseToLedgerPhase(p phase.Phase) ledger.LedgerPhase {
	switch p {
	case phase.Ignition:
		return ledger.PhaseIgnition
	case phase.Lattice:
		return ledger.PhaseLattice
	case phase.CompositionAudit:
		return ledger.PhaseCompositionAudit
	case phase.Injection:
		return ledger.PhaseInjection
	case phase.Mesoscopic:
		return ledger.PhaseMesoscopic
	case phase.MassDefect:
		return ledger.PhaseMassDefect
	default:
		return ledger.PhaseDesign
	}
}

// downgradeAll attempts to downgrade every candidate, logging (not
// aborting on) failures, and returns only the ids that actually downgraded.
func downgradeAll(l *ledger.Ledger, candidates []string, reason string, onFail FailureLogger) []string {
	var downgraded []string
	for _, id := range candidates {
		if err := l.DowngradeDelegated(id, reason); err != nil {
			if onFail != nil {
				onFail(id, err)
			}
			continue
		}
		downgraded = append(downgraded, id)
	}
	return downgraded
}

// HandlePhaseRegression turns an ordered sequence of contradictions into
// either a targeted regression or a Blocking state.
func HandlePhaseRegression(contradictions []Contradiction, l *ledger.Ledger, opts Options) (Result, error) {
	if len(contradictions) == 0 {
		return Result{}, ErrNoContradictions
	}

	analysis := Analyze(contradictions, opts.AllConstraintIDs, opts.DelegatedDecisionIDs)
	ledgerPhase := protocolPhaseToLedgerPhase(opts.CurrentPhase)

	if analysis.Classification == Complex {
		summary := summarizeContradictions(contradictions)
		if _, err := l.Append(ledger.DecisionInput{
			Category:   ledger.CategoryBlocking,
			Constraint: summary,
			Source:     ledger.SourceAuditorContradiction,
			Confidence: ledger.ConfidenceBlocking,
			Phase:      ledgerPhase,
		}, true); err != nil {
			return Result{}, fmt.Errorf("recording blocking decision: %w", err)
		}

		downgraded := downgradeAll(l, analysis.DowngradeCandidates, summary, opts.OnDowngradeFailure)

		query := buildComplexQuery(contradictions, analysis)
		options := buildResolutionOptions(contradictions, analysis)

		blockedAt := time.Now().UTC()
		return Result{
			Kind:                   KindBlocked,
			AffectedPhases:         analysis.AffectedPhases,
			AffectedConstraintIDs:  analysis.AffectedConstraintIDs,
			PreservedConstraintIDs: analysis.PreservedConstraintIDs,
			DowngradedDecisionIDs:  downgraded,
			Options:                options,
			State: phase.BlockingState{
				Phase:     opts.CurrentPhase,
				Query:     query,
				Options:   options,
				BlockedAt: blockedAt,
				Reason:    "complex contradictions",
			},
		}, nil
	}

	// Simple: exactly the single contradiction drives regression.
	c := contradictions[0]
	if _, err := l.Append(ledger.DecisionInput{
		Category:   ledger.CategoryBlocking,
		Constraint: c.Description,
		Source:     ledger.SourceAuditorContradiction,
		Confidence: ledger.ConfidenceBlocking,
		Phase:      ledgerPhase,
	}, true); err != nil {
		return Result{}, fmt.Errorf("recording blocking decision: %w", err)
	}

	downgraded := downgradeAll(l, analysis.DowngradeCandidates, c.Description, opts.OnDowngradeFailure)

	target := majorityPhase(c)
	question := regressionQuestion(target, c)

	return Result{
		Kind:                   KindRegression,
		TargetPhase:            target,
		RegressionQuestion:     question,
		AffectedPhases:         analysis.AffectedPhases,
		AffectedConstraintIDs:  analysis.AffectedConstraintIDs,
		PreservedConstraintIDs: analysis.PreservedConstraintIDs,
		DowngradedDecisionIDs:  downgraded,
	}, nil
}

// HandleAllResolutionsRejected records a human_resolution-sourced blocking
// row and produces a Blocking state whose query begins with "rejected".
func HandleAllResolutionsRejected(c Contradiction, l *ledger.Ledger, currentPhase phase.Phase) (phase.ProtocolState, error) {
	if _, err := l.Append(ledger.DecisionInput{
		Category:   ledger.CategoryBlocking,
		Constraint: fmt.Sprintf("all resolutions rejected for %s", c.ID),
		Source:     ledger.SourceHumanResolution,
		Confidence: ledger.ConfidenceBlocking,
		Phase:      protocolPhaseToLedgerPhase(currentPhase),
	}, true); err != nil {
		return nil, fmt.Errorf("recording blocking decision: %w", err)
	}

	query := fmt.Sprintf("rejected: all suggested resolutions for contradiction %q were rejected; %s", c.ID, c.Description)
	return phase.BlockingState{
		Phase:     currentPhase,
		Query:     query,
		BlockedAt: time.Now().UTC(),
		Reason:    "all resolutions rejected",
	}, nil
}

func summarizeContradictions(cs []Contradiction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d interacting contradictions", len(cs))
	for _, c := range cs {
		fmt.Fprintf(&b, "; %s (%s): %s", c.ID, c.Type, c.Description)
	}
	return b.String()
}

func buildComplexQuery(cs []Contradiction, a Analysis) string {
	var b strings.Builder
	b.WriteString("INTERACTING CONTRADICTIONS detected:\n")
	for _, c := range cs {
		fmt.Fprintf(&b, "  - [%s/%s] %s\n", c.ID, c.Type, c.Description)
	}
	fmt.Fprintf(&b, "Affected phases: %v\n", a.AffectedPhases)
	fmt.Fprintf(&b, "Affected constraints: %d, preserved constraints: %d\n",
		len(a.AffectedConstraintIDs), len(a.PreservedConstraintIDs))
	return b.String()
}

func buildResolutionOptions(cs []Contradiction, a Analysis) []string {
	var options []string
	for _, c := range cs {
		for _, r := range a.Resolutions[c.ID] {
			options = append(options, fmt.Sprintf("%s: regress to %s", r.ID, r.AffectedPhase))
		}
	}
	options = append(options, "Provide custom resolution")
	return options
}

func regressionQuestion(target InterviewPhase, c Contradiction) string {
	switch target {
	case Discovery:
		return fmt.Sprintf("A contradiction (%s) requires revisiting what the system is meant to discover: %s", c.ID, c.Description)
	case Architecture:
		return fmt.Sprintf("A contradiction (%s) in contracts or witnesses requires revisiting the architecture: %s", c.ID, c.Description)
	case Constraints:
		return fmt.Sprintf("A contradiction (%s) among constraints requires revisiting them: %s", c.ID, c.Description)
	case DesignPreferences:
		return fmt.Sprintf("A contradiction (%s) requires revisiting design preferences: %s", c.ID, c.Description)
	case Synthesis:
		return fmt.Sprintf("A contradiction (%s) requires revisiting synthesis choices: %s", c.ID, c.Description)
	case Approval:
		return fmt.Sprintf("A contradiction (%s) requires re-approval: %s", c.ID, c.Description)
	default:
		return fmt.Sprintf("A contradiction (%s) requires revisiting an earlier phase: %s", c.ID, c.Description)
	}
}

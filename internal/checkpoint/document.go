// Package checkpoint persists and reconstitutes StateSnapshot across
// process restarts without ever leaving a partially written file: writes
// go to a sibling temp file, then rename onto the target.
package checkpoint

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// CurrentVersion is this implementation's on-disk schema version.
const CurrentVersion = "1.0.0"

// document is the literal on-disk JSON shape. Absent optional fields are
// omitted, never null, to give a stable canonical form.
type document struct {
	Version         string             `json:"version"`
	PersistedAt     string             `json:"persistedAt"`
	Phase           string             `json:"phase"`
	Substate        substateDoc        `json:"substate"`
	Artifacts       []string           `json:"artifacts"`
	BlockingQueries []blockingRecordDoc `json:"blockingQueries"`
}

// substateDoc tags which ProtocolState variant is live; only the fields
// relevant to Kind are populated.
type substateDoc struct {
	Kind string `json:"kind"`

	// Active
	Substate string `json:"substate,omitempty"`

	// Blocking
	Query     string   `json:"query,omitempty"`
	BlockedAt string   `json:"blockedAt,omitempty"`
	Options   []string `json:"options,omitempty"`
	TimeoutMs *int64   `json:"timeoutMs,omitempty"`

	// Failed
	Error       string         `json:"error,omitempty"`
	FailedAt    string         `json:"failedAt,omitempty"`
	Recoverable *bool          `json:"recoverable,omitempty"`
	Code        string         `json:"code,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

type blockingResolutionDoc struct {
	QueryID    string `json:"queryId"`
	Response   string `json:"response"`
	Rationale  string `json:"rationale,omitempty"`
	ResolvedAt string `json:"resolvedAt"`
}

type blockingRecordDoc struct {
	ID         string                 `json:"id"`
	Phase      string                 `json:"phase"`
	Query      string                 `json:"query"`
	Options    []string               `json:"options,omitempty"`
	BlockedAt  string                 `json:"blockedAt"`
	TimeoutMs  *int64                 `json:"timeoutMs,omitempty"`
	Resolved   bool                   `json:"resolved"`
	Resolution *blockingResolutionDoc `json:"resolution,omitempty"`
}

func timeToISO(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseISO(s string) (time.Time, error) { return time.Parse(time.RFC3339, s) }

// toDocument converts an in-memory snapshot to its on-disk form.
func toDocument(s phase.StateSnapshot) document {
	doc := document{
		Version:     CurrentVersion,
		PersistedAt: timeToISO(time.Now()),
	}

	artifacts := make([]string, len(s.Artifacts))
	for i, a := range s.Artifacts {
		artifacts[i] = string(a)
	}
	doc.Artifacts = artifacts

	queries := make([]blockingRecordDoc, len(s.BlockingQueries))
	for i, q := range s.BlockingQueries {
		queries[i] = toBlockingRecordDoc(q)
	}
	doc.BlockingQueries = queries

	switch st := s.State.(type) {
	case phase.ActiveState:
		doc.Phase = string(st.Phase)
		doc.Substate = substateDoc{Kind: "Active", Substate: st.Substate}
	case phase.BlockingState:
		doc.Phase = string(st.Phase)
		doc.Substate = substateDoc{
			Kind:      "Blocking",
			Query:     st.Query,
			BlockedAt: timeToISO(st.BlockedAt),
			Options:   st.Options,
			TimeoutMs: st.TimeoutMs,
		}
	case phase.FailedState:
		doc.Phase = string(st.Phase)
		recoverable := st.Recoverable
		doc.Substate = substateDoc{
			Kind:        "Failed",
			Error:       st.Error,
			FailedAt:    timeToISO(st.FailedAt),
			Recoverable: &recoverable,
			Code:        st.Code,
			Context:     st.Context,
		}
	case phase.CompleteState:
		doc.Phase = string(phase.Complete)
		doc.Substate = substateDoc{Kind: "Complete"}
	}

	return doc
}

// fromDocument converts a validated on-disk document back into the
// in-memory snapshot. Callers must have already run the parse/validate
// stages; this function assumes the shape is sound and only reports
// genuine content errors (bad timestamps, unknown phase).
func fromDocument(doc document) (phase.StateSnapshot, error) {
	artifacts := make([]phase.ArtifactType, len(doc.Artifacts))
	for i, a := range doc.Artifacts {
		artifacts[i] = phase.ArtifactType(a)
	}

	queries := make([]phase.BlockingRecord, len(doc.BlockingQueries))
	for i, q := range doc.BlockingQueries {
		r, err := fromBlockingRecordDoc(q)
		if err != nil {
			return phase.StateSnapshot{}, err
		}
		queries[i] = r
	}

	p := phase.Phase(doc.Phase)
	var state phase.ProtocolState
	switch doc.Substate.Kind {
	case "Active":
		state = phase.ActiveState{Phase: p, Substate: doc.Substate.Substate}
	case "Blocking":
		blockedAt, err := parseISO(doc.Substate.BlockedAt)
		if err != nil {
			return phase.StateSnapshot{}, fmt.Errorf("invalid blockedAt: %w", err)
		}
		state = phase.BlockingState{
			Phase:     p,
			Query:     doc.Substate.Query,
			Options:   doc.Substate.Options,
			TimeoutMs: doc.Substate.TimeoutMs,
			BlockedAt: blockedAt,
		}
	case "Failed":
		failedAt, err := parseISO(doc.Substate.FailedAt)
		if err != nil {
			return phase.StateSnapshot{}, fmt.Errorf("invalid failedAt: %w", err)
		}
		recoverable := doc.Substate.Recoverable != nil && *doc.Substate.Recoverable
		state = phase.FailedState{
			Phase:       p,
			Error:       doc.Substate.Error,
			Code:        doc.Substate.Code,
			Recoverable: recoverable,
			FailedAt:    failedAt,
			Context:     doc.Substate.Context,
		}
	case "Complete":
		state = phase.CompleteState{Artifacts: artifacts}
	default:
		return phase.StateSnapshot{}, fmt.Errorf("unknown substate kind %q", doc.Substate.Kind)
	}

	return phase.StateSnapshot{State: state, Artifacts: artifacts, BlockingQueries: queries}, nil
}

func fromBlockingRecordDoc(d blockingRecordDoc) (phase.BlockingRecord, error) {
	blockedAt, err := parseISO(d.BlockedAt)
	if err != nil {
		return phase.BlockingRecord{}, fmt.Errorf("invalid blockedAt in blocking query %s: %w", d.ID, err)
	}
	r := phase.BlockingRecord{
		ID:        d.ID,
		Phase:     phase.Phase(d.Phase),
		Query:     d.Query,
		Options:   d.Options,
		BlockedAt: blockedAt,
		TimeoutMs: d.TimeoutMs,
		Resolved:  d.Resolved,
	}
	if d.Resolution != nil {
		resolvedAt, err := parseISO(d.Resolution.ResolvedAt)
		if err != nil {
			return phase.BlockingRecord{}, fmt.Errorf("invalid resolvedAt in blocking query %s: %w", d.ID, err)
		}
		r.Resolution = &phase.BlockingResolution{
			QueryID:    d.Resolution.QueryID,
			Response:   d.Resolution.Response,
			Rationale:  d.Resolution.Rationale,
			ResolvedAt: resolvedAt,
		}
	}
	return r, nil
}

func toBlockingRecordDoc(r phase.BlockingRecord) blockingRecordDoc {
	d := blockingRecordDoc{
		ID:        r.ID,
		Phase:     string(r.Phase),
		Query:     r.Query,
		Options:   r.Options,
		BlockedAt: timeToISO(r.BlockedAt),
		TimeoutMs: r.TimeoutMs,
		Resolved:  r.Resolved,
	}
	if r.Resolution != nil {
		d.Resolution = &blockingResolutionDoc{
			QueryID:    r.Resolution.QueryID,
			Response:   r.Resolution.Response,
			Rationale:  r.Resolution.Rationale,
			ResolvedAt: timeToISO(r.Resolution.ResolvedAt),
		}
	}
	return d
}

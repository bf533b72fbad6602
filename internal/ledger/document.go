package ledger

import (
	"fmt"
	"time"
)

// DocumentVersion is this implementation's on-disk ledger schema version.
const DocumentVersion = "1.0.0"

// Meta carries the ledger file's provenance.
type Meta struct {
	Version      string `json:"version"`
	Created      string `json:"created"`
	Project      string `json:"project"`
	LastModified string `json:"last_modified,omitempty"`
}

// decisionDoc is the literal on-disk shape of one Decision row. Absent
// optional fields are omitted, never null, mirroring checkpoint's document
// discipline so the ledger file has the same stable canonical form.
type decisionDoc struct {
	ID                    string   `json:"id"`
	Timestamp             string   `json:"timestamp"`
	Category              string   `json:"category"`
	Constraint            string   `json:"constraint"`
	Source                string   `json:"source"`
	Confidence            string   `json:"confidence"`
	Status                string   `json:"status"`
	Phase                 string   `json:"phase"`
	Rationale             string   `json:"rationale,omitempty"`
	Dependencies          []string `json:"dependencies,omitempty"`
	Supersedes            []string `json:"supersedes,omitempty"`
	SupersededBy          string   `json:"superseded_by,omitempty"`
	FailureContext        string   `json:"failure_context,omitempty"`
	ContradictionResolved string   `json:"contradiction_resolved,omitempty"`
	HumanQueryID          string   `json:"human_query_id,omitempty"`
}

// Document is the literal on-disk JSON shape: `{ meta, decisions }`.
type Document struct {
	Meta      Meta          `json:"meta"`
	Decisions []decisionDoc `json:"decisions"`
}

func toDecisionDoc(d Decision) decisionDoc {
	return decisionDoc{
		ID:                    d.ID,
		Timestamp:             d.Timestamp.UTC().Format(time.RFC3339),
		Category:              string(d.Category),
		Constraint:            d.Constraint,
		Source:                string(d.Source),
		Confidence:            string(d.Confidence),
		Status:                string(d.Status),
		Phase:                 string(d.Phase),
		Rationale:             d.Rationale,
		Dependencies:          d.Dependencies,
		Supersedes:            d.Supersedes,
		SupersededBy:          d.SupersededBy,
		FailureContext:        d.FailureContext,
		ContradictionResolved: d.ContradictionResolved,
		HumanQueryID:          d.HumanQueryID,
	}
}

func fromDecisionDoc(d decisionDoc) (Decision, error) {
	ts, err := time.Parse(time.RFC3339, d.Timestamp)
	if err != nil {
		return Decision{}, fmt.Errorf("decision %s: invalid timestamp %q: %w", d.ID, d.Timestamp, err)
	}
	return Decision{
		ID:                    d.ID,
		Timestamp:             ts,
		Category:              Category(d.Category),
		Constraint:            d.Constraint,
		Source:                Source(d.Source),
		Confidence:            Confidence(d.Confidence),
		Status:                Status(d.Status),
		Phase:                 LedgerPhase(d.Phase),
		Rationale:             d.Rationale,
		Dependencies:          d.Dependencies,
		Supersedes:            d.Supersedes,
		SupersededBy:          d.SupersededBy,
		FailureContext:        d.FailureContext,
		ContradictionResolved: d.ContradictionResolved,
		HumanQueryID:          d.HumanQueryID,
	}, nil
}

// ToData serializes the ledger's full row set (in append order) into the
// on-disk Document shape, stamping project and the current time as
// LastModified.
func (l *Ledger) ToData(project string, created time.Time) Document {
	l.mu.Lock()
	defer l.mu.Unlock()

	docs := make([]decisionDoc, 0, len(l.order))
	for _, id := range l.order {
		docs = append(docs, toDecisionDoc(*l.rows[id]))
	}
	return Document{
		Meta: Meta{
			Version:      DocumentVersion,
			Created:      created.UTC().Format(time.RFC3339),
			Project:      project,
			LastModified: time.Now().UTC().Format(time.RFC3339),
		},
		Decisions: docs,
	}
}

// FromData reconstructs a Ledger from a previously serialized Document,
// replaying each row through AppendWithId so every validation and
// counter-advance rule applies exactly as it would for any other load
// path. The resulting ledger answers queries identically to the one that
// produced doc, with per-category counters at least as high as any id it
// observed.
func FromData(doc Document) (*Ledger, error) {
	l := New()
	for _, dd := range doc.Decisions {
		d, err := fromDecisionDoc(dd)
		if err != nil {
			return nil, err
		}
		if err := l.AppendWithId(d); err != nil {
			return nil, fmt.Errorf("loading decision %s: %w", d.ID, err)
		}
	}
	return l, nil
}

package ledger

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"
)

var idPattern = regexp.MustCompile(`^[a-z_]+_\d{3,}$`)

// Ledger owns one protocol instance's decision rows. It is passed explicitly
// to every operation; there are no ambient singletons.
type Ledger struct {
	mu         sync.Mutex
	rows       map[string]*Decision
	order      []string            // insertion order, dense
	counters   map[Category]int    // per-category running counter
	dependents map[string][]string // id -> direct dependents
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		rows:       make(map[string]*Decision),
		counters:   make(map[Category]int),
		dependents: make(map[string][]string),
	}
}

func (l *Ledger) nextID(cat Category) string {
	l.counters[cat]++
	return fmt.Sprintf("%s_%03d", cat, l.counters[cat])
}

// Append validates input, generates an id, and records a new active row.
// If skipDependencyValidation is false, every dependency id must already
// exist. In either case the new row must not close a cycle (only possible
// via self-reference at append time, since ids are minted here).
func (l *Ledger) Append(input DecisionInput, skipDependencyValidation bool) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := input.validate(); err != nil {
		return Decision{}, err
	}

	if !skipDependencyValidation {
		var missing []string
		for _, dep := range input.Dependencies {
			if _, ok := l.rows[dep]; !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return Decision{}, &DependencyNotFoundError{Missing: missing}
		}
	}

	id := l.nextID(input.Category)
	for _, dep := range input.Dependencies {
		if dep == id {
			return Decision{}, &CircularDependencyError{Path: []string{id, id}}
		}
	}

	d := Decision{
		ID:                   id,
		Timestamp:            time.Now().UTC(),
		Category:             input.Category,
		Constraint:           input.Constraint,
		Source:               input.Source,
		Confidence:           input.Confidence,
		Status:               StatusActive,
		Phase:                input.Phase,
		Rationale:            input.Rationale,
		Dependencies:         append([]string(nil), input.Dependencies...),
		ContradictionResolved: input.ContradictionResolved,
		HumanQueryID:         input.HumanQueryID,
	}
	l.store(d)
	return d, nil
}

func (l *Ledger) store(d Decision) {
	cp := d
	l.rows[d.ID] = &cp
	l.order = append(l.order, d.ID)
	for _, dep := range d.Dependencies {
		l.dependents[dep] = append(l.dependents[dep], d.ID)
	}
}

// AppendWithId loads a fully-formed persisted row, validating its shape and
// advancing the per-category counter past whatever number it carries.
func (l *Ledger) AppendWithId(d Decision) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !idPattern.MatchString(d.ID) {
		return &ValidationError{Field: "id", Value: d.ID, Reason: "does not match ^[a-z_]+_\\d{3,}$"}
	}
	if _, dup := l.rows[d.ID]; dup {
		return &DuplicateDecisionIdError{ID: d.ID}
	}
	if !validCategories[d.Category] {
		return &ValidationError{Field: "category", Value: string(d.Category)}
	}
	if !validSources[d.Source] {
		return &ValidationError{Field: "source", Value: string(d.Source)}
	}
	if !validConfidences[d.Confidence] {
		return &ValidationError{Field: "confidence", Value: string(d.Confidence)}
	}
	if !validStatuses[d.Status] {
		return &ValidationError{Field: "status", Value: string(d.Status)}
	}
	if !validPhases[d.Phase] {
		return &ValidationError{Field: "phase", Value: string(d.Phase)}
	}
	if d.Constraint == "" {
		return &ValidationError{Field: "constraint", Reason: "must not be empty"}
	}
	if d.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "must be a valid ISO-8601 timestamp"}
	}

	if cycle := detectCycle(d, l.rows); cycle != nil {
		return &CircularDependencyError{Path: cycle}
	}

	l.store(d)

	cat := d.Category
	if n := counterSuffix(d.ID); n > l.counters[cat] {
		l.counters[cat] = n
	}
	return nil
}

// counterSuffix extracts the numeric suffix of a ledger id, e.g. 42 from
// "architectural_042".
func counterSuffix(id string) int {
	i := len(id) - 1
	for i >= 0 && id[i] >= '0' && id[i] <= '9' {
		i--
	}
	var n int
	fmt.Sscanf(id[i+1:], "%d", &n)
	return n
}

// detectCycle runs DFS with a recursion stack rooted at the newly loaded
// row, since only the load path can introduce an arbitrary cycle.
func detectCycle(newRow Decision, existing map[string]*Decision) []string {
	visiting := map[string]bool{newRow.ID: true}
	path := []string{newRow.ID}

	var walk func(deps []string) []string
	walk = func(deps []string) []string {
		for _, dep := range deps {
			if dep == newRow.ID {
				return append(append([]string(nil), path...), newRow.ID)
			}
			if visiting[dep] {
				continue
			}
			row, ok := existing[dep]
			if !ok {
				continue
			}
			visiting[dep] = true
			path = append(path, dep)
			if cyc := walk(row.Dependencies); cyc != nil {
				return cyc
			}
			path = path[:len(path)-1]
		}
		return nil
	}
	return walk(newRow.Dependencies)
}

// Supersede replaces oldId with a new row derived from newInput, keeping
// the old row intact but marked superseded.
func (l *Ledger) Supersede(oldID string, newInput DecisionInput, forceOverrideCanonical bool) (oldDecision, newDecision Decision, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old, ok := l.rows[oldID]
	if !ok {
		return Decision{}, Decision{}, &DecisionNotFoundError{ID: oldID}
	}
	if old.Status != StatusActive {
		return Decision{}, Decision{}, &InvalidSupersedeError{ID: oldID, Reason: "must be active to be superseded"}
	}
	if old.Confidence == ConfidenceCanonical && !forceOverrideCanonical {
		return Decision{}, Decision{}, &CanonicalOverrideError{ID: oldID}
	}

	if err := newInput.validate(); err != nil {
		return Decision{}, Decision{}, err
	}
	var missing []string
	for _, dep := range newInput.Dependencies {
		if _, ok := l.rows[dep]; !ok {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return Decision{}, Decision{}, &DependencyNotFoundError{Missing: missing}
	}

	id := l.nextID(newInput.Category)
	nd := Decision{
		ID:                   id,
		Timestamp:            time.Now().UTC(),
		Category:             newInput.Category,
		Constraint:           newInput.Constraint,
		Source:               newInput.Source,
		Confidence:           newInput.Confidence,
		Status:               StatusActive,
		Phase:                newInput.Phase,
		Rationale:            newInput.Rationale,
		Dependencies:         append([]string(nil), newInput.Dependencies...),
		Supersedes:           []string{oldID},
		ContradictionResolved: newInput.ContradictionResolved,
		HumanQueryID:         newInput.HumanQueryID,
	}
	l.store(nd)

	old.Status = StatusSuperseded
	old.SupersededBy = id

	return *old, nd, nil
}

// CascadeEntry is one row affected by a cascading invalidation.
type CascadeEntry struct {
	ID             string
	Depth          int
	DependencyPath []string
}

// CascadeReport is the result of Invalidate.
type CascadeReport struct {
	TotalInvalidated int
	Affected         []CascadeEntry
}

// Invalidate marks id invalidated, and (if cascade) walks the dependent
// graph breadth-first, invalidating every still-active row reachable from
// id exactly once. Canonical dependents are protected the same way the
// root is: without forceInvalidateCanonical they stay active, though the
// walk still continues through them to their own dependents.
func (l *Ledger) Invalidate(id string, cascade bool, forceInvalidateCanonical bool) (CascadeReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[id]
	if !ok {
		return CascadeReport{}, &DecisionNotFoundError{ID: id}
	}
	if row.Status != StatusActive {
		return CascadeReport{}, &InvalidSupersedeError{ID: id, Reason: "already superseded or invalidated"}
	}
	if row.Confidence == ConfidenceCanonical && !forceInvalidateCanonical {
		return CascadeReport{}, &CanonicalOverrideError{ID: id}
	}

	row.Status = StatusInvalidated
	report := CascadeReport{TotalInvalidated: 1, Affected: []CascadeEntry{{ID: id, Depth: 0, DependencyPath: []string{id}}}}

	if !cascade {
		return report, nil
	}

	visited := map[string]bool{id: true}
	type queued struct {
		id    string
		depth int
		path  []string
	}
	queue := []queued{{id: id, depth: 0, path: []string{id}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, depID := range l.dependents[cur.id] {
			if visited[depID] {
				continue
			}
			visited[depID] = true
			depRow, ok := l.rows[depID]
			if !ok {
				continue
			}
			path := append(append([]string(nil), cur.path...), depID)
			protected := depRow.Confidence == ConfidenceCanonical && !forceInvalidateCanonical
			if depRow.Status == StatusActive && !protected {
				depRow.Status = StatusInvalidated
				report.TotalInvalidated++
				report.Affected = append(report.Affected, CascadeEntry{ID: depID, Depth: cur.depth + 1, DependencyPath: path})
			}
			queue = append(queue, queued{id: depID, depth: cur.depth + 1, path: path})
		}
	}

	return report, nil
}

// DowngradeDelegated lowers a delegated, active decision's confidence to
// inferred, appending (not replacing) the failure context.
func (l *Ledger) DowngradeDelegated(id, contradictionReason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[id]
	if !ok {
		return &DecisionNotFoundError{ID: id}
	}
	if row.Confidence != ConfidenceDelegated || row.Status != StatusActive {
		return &InvalidSupersedeError{ID: id, Reason: "only active, delegated decisions may be downgraded"}
	}

	row.Confidence = ConfidenceInferred
	note := fmt.Sprintf("Composition Audit contradiction: %s", contradictionReason)
	if row.FailureContext == "" {
		row.FailureContext = note
	} else {
		row.FailureContext = row.FailureContext + "; " + note
	}
	return nil
}

// Filter restricts Query to AND-semantics across exactly these four keys.
type Filter struct {
	Category   *Category
	Phase      *LedgerPhase
	Status     *Status
	Confidence *Confidence
}

var validFilterKeys = []string{"category", "phase", "status", "confidence"}

// ValidFilterKeys returns the keys Query accepts, for error messages.
func ValidFilterKeys() []string { return append([]string(nil), validFilterKeys...) }

// Query returns every row matching filter's non-nil fields, in append
// order.
func (l *Ledger) Query(filter Filter) []Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Decision
	for _, id := range l.order {
		row := l.rows[id]
		if filter.Category != nil && row.Category != *filter.Category {
			continue
		}
		if filter.Phase != nil && row.Phase != *filter.Phase {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		if filter.Confidence != nil && row.Confidence != *filter.Confidence {
			continue
		}
		out = append(out, *row)
	}
	return out
}

// QueryByKeys is the boundary-facing form of Query: it accepts an untyped
// key/value map (as arrives from a config file or CLI flag set) and
// rejects any key outside the four the ledger understands.
func (l *Ledger) QueryByKeys(raw map[string]string) ([]Decision, error) {
	var filter Filter
	for k, v := range raw {
		switch k {
		case "category":
			c := Category(v)
			filter.Category = &c
		case "phase":
			p := LedgerPhase(v)
			filter.Phase = &p
		case "status":
			s := Status(v)
			filter.Status = &s
		case "confidence":
			c := Confidence(v)
			filter.Confidence = &c
		default:
			return nil, &InvalidFilterKeyError{Key: k, Valid: ValidFilterKeys()}
		}
	}
	return l.Query(filter), nil
}

// GetActiveDecisions returns every row with status active.
func (l *Ledger) GetActiveDecisions() []Decision {
	active := StatusActive
	return l.Query(Filter{Status: &active})
}

// GetHistory returns every row, optionally excluding superseded and/or
// invalidated ones.
func (l *Ledger) GetHistory(includeSuperseded, includeInvalidated bool) []Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Decision
	for _, id := range l.order {
		row := l.rows[id]
		switch row.Status {
		case StatusSuperseded:
			if !includeSuperseded {
				continue
			}
		case StatusInvalidated:
			if !includeInvalidated {
				continue
			}
		}
		out = append(out, *row)
	}
	return out
}

// GetByID returns the row for id, if any.
func (l *Ledger) GetByID(id string) (Decision, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return Decision{}, false
	}
	return *row, true
}

// GetDependents returns id's direct dependents.
func (l *Ledger) GetDependents(id string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[id]; !ok {
		return nil, &DecisionNotFoundError{ID: id}
	}
	return append([]string(nil), l.dependents[id]...), nil
}

// GetDependencies returns id's direct dependencies.
func (l *Ledger) GetDependencies(id string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return nil, &DecisionNotFoundError{ID: id}
	}
	return append([]string(nil), row.Dependencies...), nil
}

// GetDecisionsByDependencyGraph returns id's row plus, optionally, its
// transitive dependencies and/or dependents (BFS, de-duplicated).
func (l *Ledger) GetDecisionsByDependencyGraph(id string, includeTransitiveDependencies, includeTransitiveDependents bool) ([]Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	root, ok := l.rows[id]
	if !ok {
		return nil, &DecisionNotFoundError{ID: id}
	}

	seen := map[string]bool{id: true}
	out := []Decision{*root}

	bfs := func(start string, next func(string) []string) {
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range next(cur) {
				if seen[n] {
					continue
				}
				seen[n] = true
				if row, ok := l.rows[n]; ok {
					out = append(out, *row)
				}
				queue = append(queue, n)
			}
		}
	}

	if includeTransitiveDependencies {
		bfs(id, func(cur string) []string {
			if row, ok := l.rows[cur]; ok {
				return row.Dependencies
			}
			return nil
		})
	}
	if includeTransitiveDependents {
		bfs(id, func(cur string) []string { return l.dependents[cur] })
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

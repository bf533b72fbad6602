package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/criticality/internal/phase"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Service persists and reconstitutes StateSnapshot values for a single
// protocol instance. It owns no in-memory state of its own: every call
// reads or writes the configured path fresh.
type Service struct {
	cfg Config
}

// NewService constructs a Service from cfg, applying defaults for any
// zero-valued fields.
func NewService(cfg Config) *Service {
	if cfg.Path == "" {
		cfg.Path = ".criticality-state.json"
	}
	if cfg.MaxAgeMs == 0 {
		cfg.MaxAgeMs = DefaultMaxAgeMs
	}
	return &Service{cfg: cfg}
}

// Save serializes s and writes it to the configured path atomically: the
// document is written to a sibling temporary file, then renamed onto the
// target. A failure at any stage leaves the previous file byte-identical —
// the rename is the only step that can make the new content visible, and
// os.Rename on the same filesystem is atomic.
func (s *Service) Save(snapshot phase.StateSnapshot) error {
	doc := toDocument(snapshot)

	var data []byte
	var err error
	if s.cfg.Pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return newErr(CodeFileError, "failed to marshal snapshot: %v", err)
	}

	dir := filepath.Dir(s.cfg.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.cfg.Path)+".tmp-*")
	if err != nil {
		return newErr(CodeFileError, "failed to create temp file: %v", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return newErr(CodeFileError, "failed to write temp file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return newErr(CodeFileError, "failed to close temp file: %v", err)
	}

	if err := os.Rename(tmpPath, s.cfg.Path); err != nil {
		return newErr(CodeFileError, "failed to rename temp file onto %s: %v", s.cfg.Path, err)
	}
	return nil
}

// Load reads the configured path and runs it through the three validation
// stages: parse, schema/validate, and integrity. It never mutates the file.
// A nil error with Valid=false in the result means the file could be read
// but should not be trusted for resume; a non-nil error means the file
// could not even be read (distinct from "exists but corrupt", which is
// reported through the ValidationResult instead so callers can log it).
func (s *Service) Load() (phase.StateSnapshot, ValidationResult, error) {
	var result ValidationResult
	result.Valid = true

	info, statErr := os.Stat(s.cfg.Path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return phase.StateSnapshot{}, result, newErr(CodeFileError, "no state file at %s", s.cfg.Path)
		}
		return phase.StateSnapshot{}, result, newErr(CodeFileError, "failed to stat %s: %v", s.cfg.Path, statErr)
	}

	raw, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		return phase.StateSnapshot{}, result, newErr(CodeFileError, "failed to read %s: %v", s.cfg.Path, err)
	}

	doc, parseResult, ok := parseStage(raw)
	mergeResult(&result, parseResult)
	if !ok {
		return phase.StateSnapshot{}, result, nil
	}

	validateStage(doc, &result)
	if !result.Valid {
		return phase.StateSnapshot{}, result, nil
	}

	snapshot, err := fromDocument(doc)
	if err != nil {
		result.addError(CodeSchemaError, "failed to reconstitute snapshot: %v", err)
		return phase.StateSnapshot{}, result, nil
	}

	integrityStage(doc, snapshot, info, s.cfg, &result)

	return snapshot, result, nil
}

// mergeResult folds a parse-stage result's issues into the running total
// without clobbering Valid once it has been set false.
func mergeResult(into *ValidationResult, from ValidationResult) {
	into.Errors = append(into.Errors, from.Errors...)
	into.Warnings = append(into.Warnings, from.Warnings...)
	if !from.Valid {
		into.Valid = false
	}
}

// parseStage checks that raw is parseable JSON with the required top-level
// shape and a well-formed, compatible version. ok=false means the caller
// must not proceed to validateStage.
func parseStage(raw []byte) (document, ValidationResult, bool) {
	var result ValidationResult
	result.Valid = true

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		result.addError(CodeParseError, "state file is not valid JSON: %v", err)
		return document{}, result, false
	}

	versionRaw, _ := generic["version"].(string)
	if versionRaw == "" {
		result.addError(CodeSchemaError, "missing required field \"version\"")
		return document{}, result, false
	}
	if !versionPattern.MatchString(versionRaw) {
		result.addError(CodeSchemaError, "version %q does not match X.Y.Z", versionRaw)
		return document{}, result, false
	}

	for _, field := range []string{"phase", "substate", "artifacts", "blockingQueries"} {
		if _, ok := generic[field]; !ok {
			result.addError(CodeSchemaError, "missing required field %q", field)
		}
	}
	if !result.Valid {
		return document{}, result, false
	}

	switch cmp := compareVersions(versionRaw, CurrentVersion); {
	case cmp == versionFuture:
		result.addError(CodeFutureVersion, "state file version %s is newer than this implementation's %s", versionRaw, CurrentVersion)
		return document{}, result, false
	case cmp == versionIncompatible:
		result.addError(CodeInvalidVersion, "state file version %s is from an incompatible major version (current %s)", versionRaw, CurrentVersion)
		return document{}, result, false
	case cmp == versionOld:
		result.addWarning(CodeOldVersion, "state file version %s is older than this implementation's %s", versionRaw, CurrentVersion)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		result.addError(CodeSchemaError, "state file does not match the expected schema: %v", err)
		return document{}, result, false
	}

	return doc, result, true
}

// validateStage checks the shape validateStage can't express via JSON tags
// alone: closed enums and variant-specific required fields.
func validateStage(doc document, result *ValidationResult) {
	if !phase.Valid(phase.Phase(doc.Phase)) {
		result.addError(CodeInvalidPhase, "%q is not a known phase", doc.Phase)
	}

	switch doc.Substate.Kind {
	case "Active", "Blocking", "Failed", "Complete":
	default:
		result.addError(CodeInvalidSubstate, "%q is not a known substate kind", doc.Substate.Kind)
		return
	}

	if doc.Substate.Kind == "Blocking" {
		if doc.Substate.Query == "" {
			result.addError(CodeValidationError, "Blocking substate requires \"query\"")
		}
		if doc.Substate.BlockedAt == "" {
			result.addError(CodeValidationError, "Blocking substate requires \"blockedAt\"")
		}
	}
	if doc.Substate.Kind == "Failed" {
		if doc.Substate.Error == "" {
			result.addError(CodeValidationError, "Failed substate requires \"error\"")
		}
		if doc.Substate.Recoverable == nil {
			result.addError(CodeValidationError, "Failed substate requires \"recoverable\"")
		}
	}
}

// integrityStage runs the warning-producing checks that require the fully
// reconstituted snapshot plus file metadata: unknown artifacts, missing
// cumulative artifacts for the recorded phase, expired blocking timeouts,
// and staleness.
func integrityStage(doc document, snapshot phase.StateSnapshot, info os.FileInfo, cfg Config, result *ValidationResult) {
	var unknown []string
	for _, a := range doc.Artifacts {
		if !phase.KnownArtifact(phase.ArtifactType(a)) {
			unknown = append(unknown, a)
		}
	}
	if len(unknown) > 0 {
		result.addWarning(CodeUnknownArtifacts, "unknown artifact types: %s", strings.Join(unknown, ", "))
	}

	recordedPhase := phase.Phase(doc.Phase)
	if phase.Valid(recordedPhase) {
		required := phase.CumulativeRequiredArtifacts(recordedPhase)
		var missing []string
		for _, a := range required {
			if !snapshot.HasArtifact(a) {
				missing = append(missing, string(a))
			}
		}
		if len(missing) > 0 {
			result.addWarning(CodeMissingArtifacts, "phase %s implies artifacts not present: %s", recordedPhase, strings.Join(missing, ", "))
		}
	}

	if blocking, ok := snapshot.State.(phase.BlockingState); ok && blocking.TimeoutMs != nil {
		elapsed := time.Since(blocking.BlockedAt).Milliseconds()
		if elapsed > *blocking.TimeoutMs {
			result.addWarning(CodeBlockingTimeoutExpired, "blocking query has been outstanding for %dms, exceeding its %dms timeout", elapsed, *blocking.TimeoutMs)
		}
	}

	age := time.Since(info.ModTime()).Milliseconds()
	if age > cfg.MaxAgeMs {
		if cfg.AllowStaleState {
			result.addWarning(CodeStaleState, "state file is %dms old, exceeding the %dms staleness threshold", age, cfg.MaxAgeMs)
		} else {
			result.addError(CodeStaleState, "state file is %dms old, exceeding the %dms staleness threshold", age, cfg.MaxAgeMs)
		}
	}
}

// GetStartupState decides what the orchestrator should resume from. Any
// failure to parse, validate, or trust the on-disk snapshot yields a fresh
// Ignition snapshot rather than propagating an error — the failing file is
// never touched on this path, so a human can inspect it later.
func (s *Service) GetStartupState() (StartupResult, error) {
	if _, err := os.Stat(s.cfg.Path); os.IsNotExist(err) {
		return StartupResult{Snapshot: freshSnapshot(), Resumed: false, RecoveryPerformed: false}, nil
	}

	snapshot, validation, err := s.Load()
	if err != nil {
		return StartupResult{}, err
	}
	if !validation.Valid {
		return StartupResult{
			Snapshot:          freshSnapshot(),
			Resumed:           false,
			RecoveryPerformed: true,
			Validation:        validation,
		}, nil
	}

	return StartupResult{
		Snapshot:   snapshot,
		Resumed:    true,
		Validation: validation,
	}, nil
}

func freshSnapshot() phase.StateSnapshot {
	return phase.StateSnapshot{
		State: phase.ActiveState{Phase: phase.Ignition, Substate: "entered"},
	}
}

type versionComparison int

const (
	versionSame versionComparison = iota
	versionOld
	versionFuture
	versionIncompatible
)

// compareVersions classifies got against want (X.Y.Z each): a newer major
// is fatally incompatible in the "too new" direction (FUTURE_VERSION); an
// older major is fatally incompatible in the "too old" direction
// (INVALID_VERSION); an older minor/patch within the same major is a
// non-fatal OLD_VERSION warning.
func compareVersions(got, want string) versionComparison {
	gMaj, gMin, gPat := splitVersion(got)
	wMaj, wMin, wPat := splitVersion(want)

	switch {
	case gMaj > wMaj:
		return versionFuture
	case gMaj < wMaj:
		return versionIncompatible
	case gMin < wMin || (gMin == wMin && gPat < wPat):
		return versionOld
	default:
		return versionSame
	}
}

func splitVersion(v string) (major, minor, patch int) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return 0, 0, 0
	}
	major, _ = strconv.Atoi(parts[0])
	minor, _ = strconv.Atoi(parts[1])
	patch, _ = strconv.Atoi(parts[2])
	return major, minor, patch
}

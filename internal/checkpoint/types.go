package checkpoint

import (
	"fmt"

	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// Error codes surfaced at the boundary; names are contract, matching the
// taxonomy callers are expected to switch on.
const (
	CodeParseError             = "parse_error"
	CodeSchemaError            = "schema_error"
	CodeFileError              = "file_error"
	CodeValidationError        = "validation_error"
	CodeCorruptionError        = "corruption_error"
	CodeInvalidPhase           = "INVALID_PHASE"
	CodeInvalidSubstate        = "INVALID_SUBSTATE"
	CodeMissingArtifacts       = "MISSING_ARTIFACTS"
	CodeStaleState             = "STALE_STATE"
	CodeBlockingTimeoutExpired = "BLOCKING_TIMEOUT_EXPIRED"
	CodeUnknownArtifacts       = "UNKNOWN_ARTIFACTS"
	CodeFutureVersion          = "FUTURE_VERSION"
	CodeOldVersion             = "OLD_VERSION"
	CodeInvalidVersion         = "INVALID_VERSION"
)

// CheckpointError reports why a save or load operation failed. Code is one
// of the boundary error names above.
type CheckpointError struct {
	Code    string
	Message string
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newErr(code, format string, args ...any) *CheckpointError {
	return &CheckpointError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Issue is one warning or error surfaced by the validate/integrity stages.
// Warnings never prevent a resume; errors do.
type Issue struct {
	Code    string
	Message string
}

// ValidationResult is the outcome of loading and validating a persisted
// snapshot: Valid reports whether the snapshot is safe to resume from,
// Errors lists fatal problems, Warnings lists non-fatal ones (stale state,
// unknown artifacts, expired blocking timeout, old-but-compatible version).
type ValidationResult struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

func (v *ValidationResult) addError(code, format string, args ...any) {
	v.Errors = append(v.Errors, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
	v.Valid = false
}

func (v *ValidationResult) addWarning(code, format string, args ...any) {
	v.Warnings = append(v.Warnings, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Config governs where the snapshot lives on disk and how staleness and
// serialization are handled.
type Config struct {
	// Path is the state file location. Defaults to ".criticality-state.json".
	Path string
	// MaxAgeMs is the staleness threshold; a file older than this produces
	// STALE_STATE. Defaults to 24h.
	MaxAgeMs int64
	// AllowStaleState, when false, turns STALE_STATE from a warning into a
	// fatal validation error.
	AllowStaleState bool
	// Pretty controls whether the on-disk JSON is indented. Defaults to true.
	Pretty bool
}

// DefaultMaxAgeMs is the default staleness threshold: 24 hours.
const DefaultMaxAgeMs = int64(24 * 60 * 60 * 1000)

// DefaultConfig returns the default checkpoint configuration.
func DefaultConfig(path string) Config {
	if path == "" {
		path = ".criticality-state.json"
	}
	return Config{
		Path:            path,
		MaxAgeMs:        DefaultMaxAgeMs,
		AllowStaleState: true,
		Pretty:          true,
	}
}

// StartupResult is the outcome of GetStartupState: either a resumed
// snapshot, or a fresh Ignition snapshot with RecoveryPerformed set when the
// prior file existed but could not be trusted.
type StartupResult struct {
	Snapshot          phase.StateSnapshot
	Resumed           bool
	RecoveryPerformed bool
	Validation        ValidationResult
}

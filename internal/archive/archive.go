// Package archive implements context shedding: archiving and discarding
// conversational state at a phase boundary, per the protocol's "forgetting
// as safety" design.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// dirName is the hidden app directory under which archives are kept.
const dirName = ".criticality"

// sanitizeISO strips the colons an ISO-8601 timestamp carries so the result
// is safe as a single path segment on every target filesystem.
func sanitizeISO(t time.Time) string {
	s := t.UTC().Format(time.RFC3339)
	return strings.ReplaceAll(s, ":", "-")
}

// Shed creates the timestamped archive directory for a transition between
// from and to, rooted at projectRoot. A failure here is always non-fatal to
// the caller; Shed only reports whether it succeeded.
func Shed(projectRoot string, from, to string, now time.Time) (dir string, ok bool) {
	name := fmt.Sprintf("%s-to-%s-%s", from, to, sanitizeISO(now))
	dir = filepath.Join(projectRoot, dirName, "archives", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dir, false
	}
	return dir, true
}

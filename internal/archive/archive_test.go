package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShed_CreatesTimestampedDirectory(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 7, 18, 10, 15, 30, 0, time.UTC)

	dir, ok := Shed(root, "Ignition", "Lattice", now)
	assert.True(t, ok)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	rel, err := filepath.Rel(root, dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, filepath.Join(".criticality", "archives")))
	assert.Contains(t, filepath.Base(dir), "Ignition-to-Lattice-")
	// Colons are stripped so the segment is valid on every filesystem.
	assert.NotContains(t, filepath.Base(dir), ":")
}

func TestShed_FailureIsReportedNotFatal(t *testing.T) {
	// A file where the archive root should be makes MkdirAll fail.
	root := t.TempDir()
	blocked := filepath.Join(root, ".criticality")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o600))

	_, ok := Shed(root, "Lattice", "CompositionAudit", time.Now())
	assert.False(t, ok)
}

package externalops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRunner_RunCompilationFailureReportsStderr(t *testing.T) {
	dir := t.TempDir()
	runner := &BuildRunner{
		Dir:        dir,
		CompileCmd: []string{"sh", "-c", "echo boom 1>&2; exit 1"},
	}
	result, err := runner.RunCompilation(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
}

func TestBuildRunner_RunTestsSuccess(t *testing.T) {
	dir := t.TempDir()
	runner := &BuildRunner{
		Dir:     dir,
		TestCmd: []string{"true"},
	}
	result, err := runner.RunTests(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestNewBuildRunner_Defaults(t *testing.T) {
	runner := NewBuildRunner("/tmp/project")
	assert.Equal(t, []string{"go", "build", "./..."}, runner.CompileCmd)
	assert.Equal(t, []string{"go", "test", "./..."}, runner.TestCmd)
}

func TestGitArchiver_ArchivesWorkingTreeChanges(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "test")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))

	archiver := NewGitArchiver(dir)
	result, err := archiver.ArchivePhaseArtifacts(context.Background(), "Ignition")
	require.NoError(t, err)
	assert.True(t, result.Success)

	// A second archival with nothing new to commit must also succeed.
	result, err = archiver.ArchivePhaseArtifacts(context.Background(), "Ignition")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	require.NoError(t, cmd.Run())
}

package externalops

import (
	"bytes"
	"context"
	"os/exec"
)

// BuildRunner shells out to the project's own build and test tooling, a
// thin os/exec shim over whatever compile and test commands the project
// configures.
type BuildRunner struct {
	// Dir is the project root the commands run in.
	Dir string
	// CompileCmd defaults to {"go", "build", "./..."}.
	CompileCmd []string
	// TestCmd defaults to {"go", "test", "./..."}.
	TestCmd []string
}

// NewBuildRunner returns a BuildRunner with the Go toolchain's default
// build and test invocations rooted at dir.
func NewBuildRunner(dir string) *BuildRunner {
	return &BuildRunner{
		Dir:        dir,
		CompileCmd: []string{"go", "build", "./..."},
		TestCmd:    []string{"go", "test", "./..."},
	}
}

func (b *BuildRunner) run(ctx context.Context, args []string) (ActionResult, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = b.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return ActionResult{Success: false, Error: stderr.String(), Recoverable: true}, nil
	}
	return ActionResult{Success: true}, nil
}

// RunCompilation builds the project.
func (b *BuildRunner) RunCompilation(ctx context.Context) (ActionResult, error) {
	return b.run(ctx, b.CompileCmd)
}

// RunTests runs the project's test suite.
func (b *BuildRunner) RunTests(ctx context.Context) (ActionResult, error) {
	return b.run(ctx, b.TestCmd)
}

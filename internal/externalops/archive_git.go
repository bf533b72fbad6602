package externalops

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// GitArchiver commits the artifacts produced during a phase into the
// project's own git history before context shedding discards the
// conversational state that produced them.
type GitArchiver struct {
	// Dir is the git working tree root.
	Dir string
	// AuthorName/AuthorEmail stamp the archival commit.
	AuthorName  string
	AuthorEmail string
}

// NewGitArchiver returns a GitArchiver rooted at dir.
func NewGitArchiver(dir string) *GitArchiver {
	return &GitArchiver{Dir: dir, AuthorName: "criticality", AuthorEmail: "criticality@localhost"}
}

// ArchivePhaseArtifacts stages and commits the working tree, recording
// which phase the commit archives. A repository with nothing to commit is
// not an error — archival is inherently idempotent when a phase produced
// no file changes.
func (g *GitArchiver) ArchivePhaseArtifacts(ctx context.Context, p phase.Phase) (ActionResult, error) {
	repo, err := git.PlainOpen(g.Dir)
	if err != nil {
		return ActionResult{Success: false, Error: err.Error(), Recoverable: true}, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return ActionResult{Success: false, Error: err.Error(), Recoverable: true}, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return ActionResult{Success: false, Error: err.Error(), Recoverable: true}, nil
	}

	status, err := wt.Status()
	if err != nil {
		return ActionResult{Success: false, Error: err.Error(), Recoverable: true}, nil
	}
	if status.IsClean() {
		return ActionResult{Success: true}, nil
	}

	_, err = wt.Commit(fmt.Sprintf("archive: %s phase artifacts", p), &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.AuthorName,
			Email: g.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return ActionResult{Success: false, Error: err.Error(), Recoverable: true}, nil
	}
	return ActionResult{Success: true}, nil
}

package content

import (
	"context"
	"errors"
	"fmt"
	"io"

	sgerr "github.com/amterp/sitegate/internal/errors"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitRepo serves site files from a branch of a local clone of the content
// repository. The branch tip is resolved on every fetch, so new commits are
// picked up without reopening.
type GitRepo struct {
	dir    string
	branch string
	repo   *git.Repository
}

// OpenGitRepo opens the repository at dir for reading branch.
func OpenGitRepo(dir, branch string) (*GitRepo, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository %s: %w", dir, err)
	}
	return &GitRepo{dir: dir, branch: branch, repo: repo}, nil
}

// Revision returns the commit hash the branch currently points at.
func (g *GitRepo) Revision() (string, error) {
	ref, err := g.branchRef()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// Fetch returns the file at path decoded as text.
func (g *GitRepo) Fetch(ctx context.Context, path string) (string, error) {
	data, err := g.FetchBytes(ctx, path)
	if err != nil {
		return "", err
	}
	return DecodeText(data), nil
}

// FetchBytes returns the file at path as committed on the branch tip.
func (g *GitRepo) FetchBytes(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := g.tree()
	if err != nil {
		return nil, err
	}

	f, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return nil, sgerr.FileNotFound(path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	r, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer r.Close()

	return io.ReadAll(r)
}

func (g *GitRepo) branchRef() (*plumbing.Reference, error) {
	ref, err := g.repo.Reference(plumbing.NewBranchReferenceName(g.branch), true)
	if err == nil {
		return ref, nil
	}
	// Clones usually only track the branch remotely.
	ref, remoteErr := g.repo.Reference(plumbing.NewRemoteReferenceName("origin", g.branch), true)
	if remoteErr == nil {
		return ref, nil
	}
	return nil, &sgerr.NotFoundError{Resource: "branch", ID: g.branch}
}

func (g *GitRepo) tree() (*object.Tree, error) {
	ref, err := g.branchRef()
	if err != nil {
		return nil, err
	}
	commit, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", ref.Hash(), err)
	}
	return commit.Tree()
}

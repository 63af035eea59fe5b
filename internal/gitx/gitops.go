// Package gitx provides the git primitives and branch resolution used to
// build target-branch context for a review. Branch names taken from change
// metadata are frequently stale or renamed, so resolution walks a
// deterministic fallback chain instead of trusting the requested name.
package gitx

import (
	"context"
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitOps is the set of git primitives the branch resolver needs. Each
// operation is independently failable; the resolver decides what a failure
// means for the overall chain.
type GitOps interface {
	// FetchBranch fetches a single branch from origin into the remote
	// tracking ref
	FetchBranch(ctx context.Context, repoPath, branch string) error

	// DefaultBranch discovers the remote's symbolic default-branch pointer
	DefaultBranch(ctx context.Context, repoPath string) (string, error)

	// ListTree lists all file paths reachable from the given revision
	ListTree(ctx context.Context, repoPath, rev string) ([]string, error)

	// Checkout force-checks-out the remote tracking ref of the given branch
	Checkout(ctx context.Context, repoPath, branch string) error
}

// GoGitOps implements GitOps against an on-disk repository using go-git
type GoGitOps struct{}

// NewGoGitOps creates a new go-git backed GitOps
func NewGoGitOps() *GoGitOps {
	return &GoGitOps{}
}

// FetchBranch fetches a single branch from origin
func (g *GoGitOps) FetchBranch(ctx context.Context, repoPath, branch string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", branch, branch))
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// DefaultBranch asks origin for its symbolic HEAD and returns the branch
// name it points at
func (g *GoGitOps) DefaultBranch(ctx context.Context, repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("resolving remote: %w", err)
	}

	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("listing remote refs: %w", err)
	}

	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD && ref.Type() == plumbing.SymbolicReference {
			return ref.Target().Short(), nil
		}
	}

	return "", fmt.Errorf("remote exposes no symbolic HEAD")
}

// ListTree lists every file path in the tree of the commit the revision
// resolves to
func (g *GoGitOps) ListTree(ctx context.Context, repoPath, rev string) ([]string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolving revision %s: %w", rev, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}

	var paths []string
	iter := tree.Files()
	defer iter.Close()
	for {
		f, err := iter.Next()
		if err != nil {
			break
		}
		paths = append(paths, f.Name)
	}

	return paths, nil
}

// Checkout force-checks-out the commit the branch's remote tracking ref
// points at
func (g *GoGitOps) Checkout(ctx context.Context, repoPath, branch string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("opening repository: %w", err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision("origin/" + branch))
	if err != nil {
		return fmt.Errorf("resolving branch %s: %w", branch, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	return worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	})
}

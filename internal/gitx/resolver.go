package gitx

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/loggy"
)

// interestingExtensions is the allow-list used to bound target-branch
// context to source files worth summarizing
var interestingExtensions = map[string]bool{
	".go":    true,
	".py":    true,
	".js":    true,
	".jsx":   true,
	".ts":    true,
	".tsx":   true,
	".java":  true,
	".kt":    true,
	".rb":    true,
	".rs":    true,
	".c":     true,
	".h":     true,
	".cpp":   true,
	".hpp":   true,
	".cs":    true,
	".php":   true,
	".swift": true,
	".scala": true,
	".sql":   true,
	".sh":    true,
	".yaml":  true,
	".yml":   true,
	".toml":  true,
	".proto": true,
}

// Resolution is the outcome of branch resolution. When Marker is non-empty
// the resolution degraded and Branch/Files are unset; Attempts always holds
// the full ordered record of what was tried.
type Resolution struct {
	Branch   string
	Files    []string
	Marker   string
	Attempts []string
}

// Failed reports whether resolution degraded to a failure marker
func (r *Resolution) Failed() bool {
	return r.Marker != ""
}

// Resolver resolves a requested branch name against a working copy,
// walking a fallback chain when the requested name is not fetchable
type Resolver struct {
	git              GitOps
	fallbackBranches []string
	maxFiles         int
	logger           *loggy.Logger
}

// NewResolver creates a branch resolver backed by the given git primitives
func NewResolver(gitOps GitOps, cfg config.ReviewConfig, logger *loggy.Logger) *Resolver {
	fallbacks := cfg.FallbackBranches
	if len(fallbacks) == 0 {
		fallbacks = []string{"master", "main", "develop"}
	}

	maxFiles := cfg.MaxContextFiles
	if maxFiles <= 0 {
		maxFiles = 50
	}

	return &Resolver{
		git:              gitOps,
		fallbackBranches: fallbacks,
		maxFiles:         maxFiles,
		logger:           logger,
	}
}

// Resolve finds a fetchable branch for the requested name and lists its
// file tree. It never returns an error: any failure degrades to a
// Resolution carrying a descriptive marker.
//
// The fallback chain: fetch the requested branch directly; on failure ask
// the remote for its symbolic default branch and fetch that; on failure
// walk the configured fallback branch names in order. Once a fetch
// succeeds the tree is listed via the remote tracking ref, then FETCH_HEAD,
// then a local checkout, using the first strategy that works.
func (r *Resolver) Resolve(ctx context.Context, repoPath, requested string) *Resolution {
	res := &Resolution{}

	branch, tried := r.fetchBranch(ctx, repoPath, requested, res)
	if branch == "" {
		res.Marker = fmt.Sprintf("unable to fetch any branch (tried: %s)", strings.Join(tried, ", "))
		return res
	}

	files, ok := r.listTree(ctx, repoPath, branch, res)
	if !ok {
		res.Marker = fmt.Sprintf("fetched branch %q but failed to list its tree (tried remote ref, FETCH_HEAD, local checkout)", branch)
		return res
	}

	res.Branch = branch
	res.Files = r.filterInteresting(files)
	res.Attempts = append(res.Attempts, fmt.Sprintf("resolved branch %q with %d context files", branch, len(res.Files)))
	return res
}

// fetchBranch walks the fetch fallback chain. It returns the first branch
// name that fetched (empty when none did) along with every branch name it
// actually attempted, in order, including a discovered remote default.
func (r *Resolver) fetchBranch(ctx context.Context, repoPath, requested string, res *Resolution) (string, []string) {
	var tried []string
	seen := map[string]bool{}

	attempt := func(branch string) bool {
		if branch == "" || seen[branch] {
			return false
		}
		seen[branch] = true
		tried = append(tried, branch)

		if err := r.git.FetchBranch(ctx, repoPath, branch); err != nil {
			res.Attempts = append(res.Attempts, fmt.Sprintf("fetch branch %q failed: %v", branch, err))
			return false
		}
		res.Attempts = append(res.Attempts, fmt.Sprintf("fetch branch %q succeeded", branch))
		return true
	}

	if attempt(requested) {
		return requested, tried
	}

	defaultBranch, err := r.git.DefaultBranch(ctx, repoPath)
	if err != nil {
		res.Attempts = append(res.Attempts, fmt.Sprintf("remote default branch lookup failed: %v", err))
	} else {
		res.Attempts = append(res.Attempts, fmt.Sprintf("remote default branch is %q", defaultBranch))
		if attempt(defaultBranch) {
			return defaultBranch, tried
		}
	}

	for _, fallback := range r.fallbackBranches {
		if attempt(fallback) {
			return fallback, tried
		}
	}

	return "", tried
}

// listTree lists the resolved branch's file tree via three escalating
// strategies, recording each attempt
func (r *Resolver) listTree(ctx context.Context, repoPath, branch string, res *Resolution) ([]string, bool) {
	files, err := r.git.ListTree(ctx, repoPath, "origin/"+branch)
	if err == nil {
		res.Attempts = append(res.Attempts, fmt.Sprintf("listed tree via remote ref origin/%s (%d files)", branch, len(files)))
		return files, true
	}
	res.Attempts = append(res.Attempts, fmt.Sprintf("list tree via remote ref origin/%s failed: %v", branch, err))

	files, err = r.git.ListTree(ctx, repoPath, "FETCH_HEAD")
	if err == nil {
		res.Attempts = append(res.Attempts, fmt.Sprintf("listed tree via FETCH_HEAD (%d files)", len(files)))
		return files, true
	}
	res.Attempts = append(res.Attempts, fmt.Sprintf("list tree via FETCH_HEAD failed: %v", err))

	if err = r.git.Checkout(ctx, repoPath, branch); err != nil {
		res.Attempts = append(res.Attempts, fmt.Sprintf("checkout %s failed: %v", branch, err))
		return nil, false
	}
	files, err = r.git.ListTree(ctx, repoPath, "HEAD")
	if err != nil {
		res.Attempts = append(res.Attempts, fmt.Sprintf("list working tree after checkout failed: %v", err))
		return nil, false
	}
	res.Attempts = append(res.Attempts, fmt.Sprintf("listed tree via local checkout of %s (%d files)", branch, len(files)))
	return files, true
}

// filterInteresting keeps source files by extension allow-list, capped at
// the configured maximum
func (r *Resolver) filterInteresting(files []string) []string {
	filtered := make([]string, 0, r.maxFiles)
	for _, f := range files {
		if !interestingExtensions[strings.ToLower(filepath.Ext(f))] {
			continue
		}
		filtered = append(filtered, f)
		if len(filtered) >= r.maxFiles {
			break
		}
	}
	return filtered
}

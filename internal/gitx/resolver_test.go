package gitx

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/loggy"
)

// fakeGitOps scripts the four git primitives for resolver tests
type fakeGitOps struct {
	fetchable     map[string]bool
	defaultBranch string
	defaultErr    error
	trees         map[string][]string
	checkoutErr   error

	fetchCalls    []string
	checkoutCalls []string
}

func (f *fakeGitOps) FetchBranch(_ context.Context, _, branch string) error {
	f.fetchCalls = append(f.fetchCalls, branch)
	if f.fetchable[branch] {
		return nil
	}
	return fmt.Errorf("couldn't find remote ref %q", branch)
}

func (f *fakeGitOps) DefaultBranch(_ context.Context, _ string) (string, error) {
	if f.defaultErr != nil {
		return "", f.defaultErr
	}
	return f.defaultBranch, nil
}

func (f *fakeGitOps) ListTree(_ context.Context, _, rev string) ([]string, error) {
	if tree, ok := f.trees[rev]; ok {
		return tree, nil
	}
	return nil, fmt.Errorf("unknown revision %q", rev)
}

func (f *fakeGitOps) Checkout(_ context.Context, _, branch string) error {
	f.checkoutCalls = append(f.checkoutCalls, branch)
	return f.checkoutErr
}

func newTestResolver(ops GitOps) *Resolver {
	return NewResolver(ops, config.ReviewConfig{
		FallbackBranches: []string{"master", "main", "develop"},
		MaxContextFiles:  50,
	}, loggy.NewNoopLogger())
}

func TestResolveDirectFetch(t *testing.T) {
	ops := &fakeGitOps{
		fetchable: map[string]bool{"feature/login": true},
		trees:     map[string][]string{"origin/feature/login": {"auth.go", "auth_test.go"}},
	}

	res := newTestResolver(ops).Resolve(context.Background(), "/repo", "feature/login")

	require.False(t, res.Failed())
	assert.Equal(t, "feature/login", res.Branch)
	assert.Equal(t, []string{"auth.go", "auth_test.go"}, res.Files)
	assert.Equal(t, []string{"feature/login"}, ops.fetchCalls)
}

func TestResolveFallsBackToRemoteDefault(t *testing.T) {
	ops := &fakeGitOps{
		fetchable:     map[string]bool{"main": true},
		defaultBranch: "main",
		trees:         map[string][]string{"origin/main": {"main.go"}},
	}

	res := newTestResolver(ops).Resolve(context.Background(), "/repo", "stale-branch")

	require.False(t, res.Failed())
	assert.Equal(t, "main", res.Branch)
	assert.Equal(t, []string{"stale-branch", "main"}, ops.fetchCalls)

	// The failed direct attempt must be logged before the successful one
	var failedIdx, successIdx int = -1, -1
	for i, a := range res.Attempts {
		if strings.Contains(a, `"stale-branch" failed`) {
			failedIdx = i
		}
		if strings.Contains(a, `"main" succeeded`) {
			successIdx = i
		}
	}
	require.GreaterOrEqual(t, failedIdx, 0)
	require.GreaterOrEqual(t, successIdx, 0)
	assert.Less(t, failedIdx, successIdx)
}

func TestResolveWalksFallbackList(t *testing.T) {
	ops := &fakeGitOps{
		fetchable:  map[string]bool{"develop": true},
		defaultErr: fmt.Errorf("remote exposes no symbolic HEAD"),
		trees:      map[string][]string{"origin/develop": {"app.go"}},
	}

	res := newTestResolver(ops).Resolve(context.Background(), "/repo", "gone")

	require.False(t, res.Failed())
	assert.Equal(t, "develop", res.Branch)
	assert.Equal(t, []string{"gone", "master", "main", "develop"}, ops.fetchCalls)
}

func TestResolveNothingFetchable(t *testing.T) {
	ops := &fakeGitOps{
		fetchable:  map[string]bool{},
		defaultErr: fmt.Errorf("connection refused"),
	}

	res := newTestResolver(ops).Resolve(context.Background(), "/repo", "gone")

	require.True(t, res.Failed())
	assert.Contains(t, res.Marker, "unable to fetch any branch")
	assert.Contains(t, res.Marker, "gone, master, main, develop")
	assert.Empty(t, res.Branch)
	assert.Empty(t, res.Files)
}

func TestResolveMarkerIncludesDiscoveredDefault(t *testing.T) {
	// The remote advertises an unfetchable default outside the configured
	// fallback list; the marker must still account for it.
	ops := &fakeGitOps{
		fetchable:     map[string]bool{},
		defaultBranch: "trunk",
	}

	res := newTestResolver(ops).Resolve(context.Background(), "/repo", "gone")

	require.True(t, res.Failed())
	assert.Contains(t, res.Marker, "gone, trunk, master, main, develop")
	assert.Equal(t, []string{"gone", "trunk", "master", "main", "develop"}, ops.fetchCalls)
}

func TestResolveTreeStrategyEscalation(t *testing.T) {
	t.Run("falls back to FETCH_HEAD", func(t *testing.T) {
		ops := &fakeGitOps{
			fetchable: map[string]bool{"main": true},
			trees:     map[string][]string{"FETCH_HEAD": {"main.go"}},
		}

		res := newTestResolver(ops).Resolve(context.Background(), "main", "main")

		require.False(t, res.Failed())
		assert.Equal(t, []string{"main.go"}, res.Files)
		assert.Empty(t, ops.checkoutCalls)
	})

	t.Run("falls back to local checkout", func(t *testing.T) {
		ops := &fakeGitOps{
			fetchable: map[string]bool{"main": true},
			trees:     map[string][]string{"HEAD": {"main.go"}},
		}

		res := newTestResolver(ops).Resolve(context.Background(), "/repo", "main")

		require.False(t, res.Failed())
		assert.Equal(t, []string{"main.go"}, res.Files)
		assert.Equal(t, []string{"main"}, ops.checkoutCalls)
	})

	t.Run("marker names all strategies when every listing fails", func(t *testing.T) {
		ops := &fakeGitOps{
			fetchable:   map[string]bool{"main": true},
			trees:       map[string][]string{},
			checkoutErr: fmt.Errorf("dirty worktree"),
		}

		res := newTestResolver(ops).Resolve(context.Background(), "/repo", "main")

		require.True(t, res.Failed())
		assert.Contains(t, res.Marker, "remote ref")
		assert.Contains(t, res.Marker, "FETCH_HEAD")
		assert.Contains(t, res.Marker, "local checkout")
	})
}

func TestFilterInteresting(t *testing.T) {
	ops := &fakeGitOps{}
	r := NewResolver(ops, config.ReviewConfig{
		FallbackBranches: []string{"main"},
		MaxContextFiles:  3,
	}, loggy.NewNoopLogger())

	files := []string{
		"README.md",
		"main.go",
		"logo.png",
		"server.py",
		"Makefile",
		"handler.ts",
		"extra.go",
	}

	filtered := r.filterInteresting(files)
	assert.Equal(t, []string{"main.go", "server.py", "handler.ts"}, filtered)
}

package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/tildaslashalef/revline/internal/ulid"
)

// MaterializeWorkingCopy shallow-clones the repository into a fresh
// per-run directory and returns its path. When a token is configured the
// clone is first attempted authenticated; on failure it is retried
// anonymously, since many change URLs point at public repositories.
func (s *Service) MaterializeWorkingCopy(ctx context.Context, repoURL string) (string, error) {
	workDir := s.config.Review.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}

	repoPath := filepath.Join(workDir, "revline-"+ulid.Generate())
	if err := os.MkdirAll(repoPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create working copy directory: %w", err)
	}

	cloneURL := ensureGitSuffix(repoURL)
	token := s.cloneToken(repoURL)

	authURL := cloneURL
	if token != "" {
		authURL = injectToken(cloneURL, token)
	}

	s.logger.Debug("Cloning repository", "path", repoPath, "depth", s.config.Review.CloneDepth)

	_, err := git.PlainCloneContext(ctx, repoPath, false, &git.CloneOptions{
		URL:   authURL,
		Depth: s.config.Review.CloneDepth,
	})
	if err != nil && token != "" {
		// Retry without authentication for public repositories
		s.logger.Debug("Authenticated clone failed, retrying anonymously", "error", err)
		os.RemoveAll(repoPath)
		if mkErr := os.MkdirAll(repoPath, 0755); mkErr != nil {
			return "", fmt.Errorf("failed to create working copy directory: %w", mkErr)
		}
		_, err = git.PlainCloneContext(ctx, repoPath, false, &git.CloneOptions{
			URL:   cloneURL,
			Depth: s.config.Review.CloneDepth,
		})
	}
	if err != nil {
		os.RemoveAll(repoPath)
		return "", fmt.Errorf("failed to clone repository: %w", err)
	}

	return repoPath, nil
}

// CleanupWorkingCopy removes a working copy created by MaterializeWorkingCopy
func (s *Service) CleanupWorkingCopy(path string) error {
	if path == "" {
		return nil
	}
	return os.RemoveAll(path)
}

// cloneToken picks the token matching the repository's host
func (s *Service) cloneToken(repoURL string) string {
	lower := strings.ToLower(repoURL)
	if strings.Contains(lower, "github.com") {
		return s.config.GitHub.Token
	}
	if s.config.GitLab.Token != "" {
		return s.config.GitLab.Token
	}
	return s.config.GitHub.Token
}

// injectToken rewrites an HTTP(S) URL to carry oauth2 token credentials
func injectToken(repoURL, token string) string {
	if strings.HasPrefix(repoURL, "https://") {
		return strings.Replace(repoURL, "https://", fmt.Sprintf("https://oauth2:%s@", token), 1)
	}
	if strings.HasPrefix(repoURL, "http://") {
		return strings.Replace(repoURL, "http://", fmt.Sprintf("http://oauth2:%s@", token), 1)
	}
	return repoURL
}

// ensureGitSuffix appends .git to HTTP(S) clone URLs that lack it
func ensureGitSuffix(repoURL string) string {
	if strings.HasSuffix(repoURL, ".git") {
		return repoURL
	}
	if strings.HasPrefix(repoURL, "http://") || strings.HasPrefix(repoURL, "https://") {
		return repoURL + ".git"
	}
	return repoURL
}

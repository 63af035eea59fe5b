// Package host provides change-source adapters for pull/merge request hosts.
// GitHub and GitLab (including self-hosted instances) are supported; both are
// normalized to the same ChangeMetadata shape.
package host

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/loggy"
)

var (
	// ErrUnsupportedURL is returned when a change URL matches no known host shape
	ErrUnsupportedURL = errors.New("unsupported change URL format")

	// GitLab pattern works for self-hosted instances as well
	gitlabChangeRe = regexp.MustCompile(`([^/]+)/([^/]+)/([^/]+)/-/merge_requests/(\d+)`)
	githubChangeRe = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)`)

	repoURLRe = regexp.MustCompile(`([^:/]+(?:\.[^:/]+)+)/([^/]+)/([^/]+?)(?:\.git)?$`)
)

// Service fetches change metadata and materializes working copies
type Service struct {
	config *config.Config
	github *GitHubClient
	gitlab *GitLabClient
	logger *loggy.Logger
}

// NewService creates a new host service
func NewService(cfg *config.Config, logger *loggy.Logger) *Service {
	return &Service{
		config: cfg,
		github: NewGitHubClient(cfg.GitHub),
		gitlab: NewGitLabClient(cfg.GitLab),
		logger: logger,
	}
}

// ParseChangeURL extracts the host, project and change number from a
// pull-request-style or merge-request-style URL
func ParseChangeURL(changeURL string) (*ChangeRef, error) {
	if m := githubChangeRe.FindStringSubmatch(changeURL); m != nil {
		number, err := strconv.Atoi(m[3])
		if err != nil {
			return nil, fmt.Errorf("invalid pull request number in %s: %w", changeURL, err)
		}
		return &ChangeRef{
			Platform: PlatformGitHub,
			Host:     "github.com",
			Owner:    m[1],
			Repo:     m[2],
			Number:   number,
		}, nil
	}

	if m := gitlabChangeRe.FindStringSubmatch(changeURL); m != nil {
		number, err := strconv.Atoi(m[4])
		if err != nil {
			return nil, fmt.Errorf("invalid merge request number in %s: %w", changeURL, err)
		}
		return &ChangeRef{
			Platform: PlatformGitLab,
			Host:     m[1],
			Owner:    m[2],
			Repo:     m[3],
			Number:   number,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, changeURL)
}

// ParseRepoURL extracts the host, owner and repo name from a repository URL
func ParseRepoURL(repoURL string) (host, owner, repo string, err error) {
	m := repoURLRe.FindStringSubmatch(strings.TrimSuffix(repoURL, "/"))
	if m == nil {
		return "", "", "", fmt.Errorf("invalid repository URL format: %s", repoURL)
	}
	return m[1], m[2], m[3], nil
}

// FetchChangeMetadata fetches change metadata for a pull/merge request URL,
// dispatching to the matching host client
func (s *Service) FetchChangeMetadata(ctx context.Context, changeURL string) (*ChangeMetadata, error) {
	ref, err := ParseChangeURL(changeURL)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Fetching change metadata",
		"platform", ref.Platform,
		"project", fmt.Sprintf("%s/%s", ref.Owner, ref.Repo),
		"number", ref.Number)

	var meta *ChangeMetadata
	switch ref.Platform {
	case PlatformGitHub:
		meta, err = s.github.GetChange(ctx, ref)
	case PlatformGitLab:
		meta, err = s.gitlab.GetChange(ctx, ref)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, changeURL)
	}
	if err != nil {
		return nil, err
	}

	tagLanguages(meta.Files)
	return meta, nil
}

// tagLanguages annotates each file change with a detected language,
// based on the file name alone
func tagLanguages(files []FileChange) {
	for i := range files {
		files[i].Language = enry.GetLanguage(files[i].Path, nil)
	}
}

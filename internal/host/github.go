package host

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/tildaslashalef/revline/internal/config"
	"golang.org/x/oauth2"
)

// GitHubClient fetches pull request metadata through the GitHub API
type GitHubClient struct {
	client *github.Client
	config config.GitHubConfig
}

// NewGitHubClient creates a new GitHub API client from config
func NewGitHubClient(cfg config.GitHubConfig) *GitHubClient {
	// Create auth token source
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)

	// Create HTTP client with appropriate timeout
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = timeout

	// Create GitHub client with custom base URL if specified
	var client *github.Client
	if cfg.APIURL != "" && cfg.APIURL != "https://api.github.com" {
		var err error
		client, err = github.NewClient(tc).WithEnterpriseURLs(cfg.APIURL, cfg.APIURL)
		if err != nil {
			// Fall back to default client if enterprise client creation fails
			client = github.NewClient(tc)
		}
	} else {
		client = github.NewClient(tc)
	}

	return &GitHubClient{
		client: client,
		config: cfg,
	}
}

// GetChange fetches a pull request and its changed files
func (c *GitHubClient) GetChange(ctx context.Context, ref *ChangeRef) (*ChangeMetadata, error) {
	if ref.Owner == "" || ref.Repo == "" {
		return nil, fmt.Errorf("owner and repo must be provided")
	}

	pr, _, err := c.client.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request: %w", err)
	}

	files, _, err := c.client.PullRequests.ListFiles(ctx, ref.Owner, ref.Repo, ref.Number, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull request files: %w", err)
	}

	meta := &ChangeMetadata{
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		Author:      pr.GetUser().GetLogin(),
		State:       pr.GetState(),
		Additions:   pr.GetAdditions(),
		Deletions:   pr.GetDeletions(),
		WebURL:      pr.GetHTMLURL(),
		Platform:    PlatformGitHub,
	}
	if pr.Head != nil {
		meta.SourceBranch = pr.Head.GetRef()
	}
	if pr.Base != nil {
		meta.TargetBranch = pr.Base.GetRef()
	}

	meta.Files = make([]FileChange, 0, len(files))
	for _, f := range files {
		meta.Files = append(meta.Files, FileChange{
			Path:      f.GetFilename(),
			OldPath:   f.GetPreviousFilename(),
			Status:    normalizeGitHubStatus(f.GetStatus()),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Diff:      f.GetPatch(),
		})
	}

	return meta, nil
}

// normalizeGitHubStatus maps the GitHub file status vocabulary onto ours
func normalizeGitHubStatus(status string) ChangeStatus {
	switch status {
	case "added":
		return StatusAdded
	case "removed":
		return StatusDeleted
	case "renamed":
		return StatusRenamed
	default:
		return StatusModified
	}
}

package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/loggy"
)

// GitLabClient fetches merge request metadata through the GitLab API v4.
// Self-hosted instances are supported; the API base URL is derived from
// the host in the merge request URL.
type GitLabClient struct {
	token      string
	maxRetries int
	httpClient *http.Client
}

// NewGitLabClient creates a new GitLab API client from config
func NewGitLabClient(cfg config.GitLabConfig) *GitLabClient {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &GitLabClient{
		token:      cfg.Token,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// gitlabMergeRequest mirrors the subset of the MR payload we need
type gitlabMergeRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	State        string `json:"state"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	WebURL       string `json:"web_url"`
	Author       struct {
		Username string `json:"username"`
	} `json:"author"`
}

// gitlabChange mirrors one entry of the /changes endpoint payload
type gitlabChange struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	NewFile     bool   `json:"new_file"`
	DeletedFile bool   `json:"deleted_file"`
	RenamedFile bool   `json:"renamed_file"`
	Diff        string `json:"diff"`
}

type gitlabChangesResponse struct {
	Changes []gitlabChange `json:"changes"`
}

// GetChange fetches a merge request and its changed files
func (c *GitLabClient) GetChange(ctx context.Context, ref *ChangeRef) (*ChangeMetadata, error) {
	apiBase := fmt.Sprintf("https://%s/api/v4", ref.Host)
	encodedProject := strings.ReplaceAll(fmt.Sprintf("%s/%s", ref.Owner, ref.Repo), "/", "%2F")
	mrURL := fmt.Sprintf("%s/projects/%s/merge_requests/%d", apiBase, encodedProject, ref.Number)

	var mr gitlabMergeRequest
	if err := c.getJSON(ctx, mrURL, &mr); err != nil {
		return nil, fmt.Errorf("failed to get merge request: %w", err)
	}

	var changes gitlabChangesResponse
	if err := c.getJSON(ctx, mrURL+"/changes", &changes); err != nil {
		return nil, fmt.Errorf("failed to get merge request changes: %w", err)
	}

	meta := &ChangeMetadata{
		Title:        mr.Title,
		Description:  mr.Description,
		Author:       mr.Author.Username,
		State:        mr.State,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		WebURL:       mr.WebURL,
		Platform:     PlatformGitLab,
	}

	meta.Files = make([]FileChange, 0, len(changes.Changes))
	for _, change := range changes.Changes {
		stats := ParseDiffStats(change.Diff)

		path := change.NewPath
		if path == "" {
			path = change.OldPath
		}

		fc := FileChange{
			Path:      path,
			Status:    normalizeGitLabStatus(change),
			Additions: stats.Additions,
			Deletions: stats.Deletions,
			Diff:      change.Diff,
		}
		if change.RenamedFile {
			fc.OldPath = change.OldPath
		}

		meta.Files = append(meta.Files, fc)
		meta.Additions += stats.Additions
		meta.Deletions += stats.Deletions
	}

	return meta, nil
}

// getJSON performs an authenticated GET with retries and decodes the response
func (c *GitLabClient) getJSON(ctx context.Context, url string, out interface{}) error {
	var lastErr error
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		if c.token != "" {
			req.Header.Set("PRIVATE-TOKEN", c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("sending request: %w", err)
			return lastErr
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("reading response body: %w", err)
			return lastErr
		}

		if resp.StatusCode != http.StatusOK {
			loggy.Debug("GitLab API error response", "status", resp.Status, "url", url)
			lastErr = fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
			// Client errors won't improve on retry
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}

		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}

		return nil
	}

	if err := backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries))); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}

	return nil
}

// normalizeGitLabStatus derives our status vocabulary from GitLab change flags
func normalizeGitLabStatus(change gitlabChange) ChangeStatus {
	switch {
	case change.NewFile:
		return StatusAdded
	case change.DeletedFile:
		return StatusDeleted
	case change.RenamedFile:
		return StatusRenamed
	default:
		return StatusModified
	}
}

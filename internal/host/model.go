package host

// Platform identifies the change host a URL belongs to
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformGitLab Platform = "gitlab"
)

// ChangeStatus describes how a file was changed
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusModified ChangeStatus = "modified"
	StatusDeleted  ChangeStatus = "deleted"
	StatusRenamed  ChangeStatus = "renamed"
)

// ChangeRef identifies a pull/merge request on a host
type ChangeRef struct {
	Platform Platform
	Host     string
	Owner    string
	Repo     string
	Number   int
}

// FileChange represents a single changed file in a pull/merge request.
// Both host adapters normalize into this shape.
type FileChange struct {
	Path      string       `json:"path"`
	OldPath   string       `json:"old_path,omitempty"`
	Status    ChangeStatus `json:"status"`
	Additions int          `json:"additions"`
	Deletions int          `json:"deletions"`
	Diff      string       `json:"diff,omitempty"`
	Language  string       `json:"language,omitempty"`
}

// ChangeMetadata represents the metadata of a pull/merge request
type ChangeMetadata struct {
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Author       string       `json:"author,omitempty"`
	State        string       `json:"state,omitempty"`
	SourceBranch string       `json:"source_branch,omitempty"`
	TargetBranch string       `json:"target_branch,omitempty"`
	Files        []FileChange `json:"files_changed"`
	Additions    int          `json:"additions"`
	Deletions    int          `json:"deletions"`
	WebURL       string       `json:"web_url,omitempty"`
	Platform     Platform     `json:"platform"`
}

// Package pipeline implements the review pipeline: a linear state machine
// that fetches a change, materializes a working copy, optionally resolves
// target-branch context, runs the enabled analysis stages, and finalizes.
// Run never returns an error; every failure is captured in the ReviewState.
package pipeline

import (
	"strings"
	"time"

	"github.com/tildaslashalef/revline/internal/extractor"
	"github.com/tildaslashalef/revline/internal/stage"
	"github.com/tildaslashalef/revline/internal/ulid"
)

// StageStatus is the lifecycle of one stage result. It starts pending and
// transitions exactly once.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusSuccess StageStatus = "success"
	StatusSkipped StageStatus = "skipped"
	StatusError   StageStatus = "error"
)

// Usage is the resource consumption of a single stage
type Usage struct {
	InputUnits  int `json:"input_units"`
	OutputUnits int `json:"output_units"`
	TotalUnits  int `json:"total_units"`
}

// ReviewRequest is the immutable input of one pipeline run. Stages absent
// from EnabledStages default to enabled.
type ReviewRequest struct {
	ChangeURL           string
	RepoURL             string
	AnalyzeTargetBranch bool
	EnabledStages       map[stage.Name]bool
}

// StageEnabled reports whether a stage should run; missing keys default
// to enabled
func (r ReviewRequest) StageEnabled(name stage.Name) bool {
	enabled, ok := r.EnabledStages[name]
	if !ok {
		return true
	}
	return enabled
}

// StageResult is the terminal record of one stage
type StageResult struct {
	Status       StageStatus       `json:"status"`
	Summary      string            `json:"summary"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Findings     []extractor.Issue `json:"findings,omitempty"`
	Usage        Usage             `json:"usage"`
}

// ReviewState is the full state of one review run, owned exclusively by
// the pipeline for the duration of Run
type ReviewState struct {
	ID        string    `json:"id"`
	ChangeURL string    `json:"change_url"`
	RepoURL   string    `json:"repo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	SourceBranch string `json:"source_branch,omitempty"`
	TargetBranch string `json:"target_branch,omitempty"`

	StatusMessage   string `json:"status_message"`
	WorkingCopyPath string `json:"working_copy_path,omitempty"`

	// TargetBranchContext is nil when target-branch analysis was not
	// requested; otherwise it always carries either context text or an
	// explicit skip/failure marker
	TargetBranchContext *string `json:"target_branch_context,omitempty"`

	StageResults  map[stage.Name]*StageResult `json:"stage_results"`
	ResourceUsage map[stage.Name]Usage        `json:"resource_usage"`
	CheckpointLog []string                    `json:"checkpoint_log"`

	TotalUnits int `json:"total_units"`
}

// NewReviewState creates the initial state for a request, with every
// stage pending
func NewReviewState(req ReviewRequest) *ReviewState {
	now := time.Now().UTC()
	state := &ReviewState{
		ID:            ulid.ReviewID(),
		ChangeURL:     req.ChangeURL,
		RepoURL:       req.RepoURL,
		CreatedAt:     now,
		UpdatedAt:     now,
		StatusMessage: "Starting review",
		StageResults:  make(map[stage.Name]*StageResult, len(stage.Names())),
		ResourceUsage: make(map[stage.Name]Usage, len(stage.Names())),
	}
	for _, name := range stage.Names() {
		state.StageResults[name] = &StageResult{Status: StatusPending}
	}
	return state
}

// Succeeded reports whether the pipeline ran to completion. Note this is
// a completion signal, not a review verdict: individual stages may still
// carry errors.
func (s *ReviewState) Succeeded() bool {
	return strings.Contains(strings.ToLower(s.StatusMessage), "completed successfully")
}

// Log appends an entry to the checkpoint log
func (s *ReviewState) Log(entry string) {
	s.CheckpointLog = append(s.CheckpointLog, entry)
}

// setContext records the target-branch context marker or text
func (s *ReviewState) setContext(text string) {
	s.TargetBranchContext = &text
}

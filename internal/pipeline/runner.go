package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tildaslashalef/revline/internal/gitx"
	"github.com/tildaslashalef/revline/internal/host"
	"github.com/tildaslashalef/revline/internal/llm"
	"github.com/tildaslashalef/revline/internal/loggy"
	"github.com/tildaslashalef/revline/internal/stage"
)

// ChangeSource fetches change metadata and materializes working copies
type ChangeSource interface {
	FetchChangeMetadata(ctx context.Context, changeURL string) (*host.ChangeMetadata, error)
	MaterializeWorkingCopy(ctx context.Context, repoURL string) (string, error)
}

// BranchResolver resolves the target branch and lists its context files
type BranchResolver interface {
	Resolve(ctx context.Context, repoPath, branch string) *gitx.Resolution
}

// StageRunner executes one named analysis stage over a change set
type StageRunner interface {
	Run(ctx context.Context, name stage.Name, files []host.FileChange) (*stage.Output, llm.TokenUsage, error)
}

// ProgressFunc receives checkpoint descriptions with a percentage in
// 0..100. Calls are best-effort; panics are swallowed by the runner.
type ProgressFunc func(step string, percent int)

// stagePercents are the fixed checkpoint percentages per stage
var stagePercents = map[stage.Name]int{
	stage.Security:    40,
	stage.Bugs:        60,
	stage.Style:       75,
	stage.Performance: 82,
	stage.Tests:       88,
}

// Runner sequences the review pipeline over its collaborators
type Runner struct {
	source   ChangeSource
	resolver BranchResolver
	stages   StageRunner
	progress ProgressFunc
	logger   *loggy.Logger
}

// NewRunner creates a pipeline runner. progress may be nil.
func NewRunner(source ChangeSource, resolver BranchResolver, stages StageRunner, progress ProgressFunc, logger *loggy.Logger) *Runner {
	if logger == nil {
		logger = loggy.NewNoopLogger()
	}
	return &Runner{
		source:   source,
		resolver: resolver,
		stages:   stages,
		progress: progress,
		logger:   logger,
	}
}

// Run executes the full pipeline for one request. It never returns an
// error: fetch, clone, branch-resolution and stage failures all degrade
// the corresponding state fields and the pipeline continues to finalize.
func (r *Runner) Run(ctx context.Context, req ReviewRequest) *ReviewState {
	state := NewReviewState(req)

	files := r.fetchChange(ctx, req, state)
	r.cloneRepo(ctx, req, state)
	r.resolveTargetBranch(ctx, req, state)
	r.runStages(ctx, req, state, files)
	r.finalize(state)

	return state
}

// fetchChange fetches change metadata; on failure the pipeline continues
// with an empty file list
func (r *Runner) fetchChange(ctx context.Context, req ReviewRequest, state *ReviewState) []host.FileChange {
	r.report("Fetching change details", 10)

	meta, err := r.source.FetchChangeMetadata(ctx, req.ChangeURL)
	if err != nil {
		state.StatusMessage = fmt.Sprintf("Error fetching PR: %v", err)
		state.Log(fmt.Sprintf("Error fetching change: %v", err))
		r.report("Fetching change details failed", 10)
		return nil
	}

	state.Title = meta.Title
	state.Author = meta.Author
	state.SourceBranch = meta.SourceBranch
	state.TargetBranch = meta.TargetBranch
	state.StatusMessage = "PR details fetched successfully"
	state.Log(fmt.Sprintf("Fetched change: %s", meta.Title))
	r.report("Fetched change details", 10)

	return meta.Files
}

// cloneRepo materializes the working copy; on failure the target-branch
// context is pre-set so resolution short-circuits
func (r *Runner) cloneRepo(ctx context.Context, req ReviewRequest, state *ReviewState) {
	r.report("Cloning repository", 20)

	path, err := r.source.MaterializeWorkingCopy(ctx, req.RepoURL)
	if err != nil {
		state.StatusMessage = fmt.Sprintf("Error cloning repository: %v", err)
		state.Log(fmt.Sprintf("Error cloning repository: %v", err))
		if req.AnalyzeTargetBranch {
			state.setContext("skipped: no repository")
		}
		r.report("Cloning repository failed", 20)
		return
	}

	state.WorkingCopyPath = path
	state.StatusMessage = "Repository cloned successfully"
	state.Log(fmt.Sprintf("Cloned repository to %s", path))
	r.report("Cloned repository", 20)
}

// resolveTargetBranch builds target-branch context when requested and a
// working copy exists; resolution failures degrade to a marker string
func (r *Runner) resolveTargetBranch(ctx context.Context, req ReviewRequest, state *ReviewState) {
	if !req.AnalyzeTargetBranch {
		state.TargetBranchContext = nil
		r.report("Target branch analysis not requested", 30)
		return
	}

	r.report("Analyzing target branch", 30)

	if state.WorkingCopyPath == "" {
		if state.TargetBranchContext == nil {
			state.setContext("skipped: no repository")
		}
		state.Log("Target branch analysis skipped: no repository")
		r.report("Target branch analysis skipped", 30)
		return
	}

	res := r.resolver.Resolve(ctx, state.WorkingCopyPath, state.TargetBranch)
	for _, attempt := range res.Attempts {
		state.Log(attempt)
	}

	if res.Failed() {
		state.setContext("error: " + res.Marker)
		r.report("Target branch analysis failed", 30)
		return
	}

	state.setContext(formatBranchContext(res))
	r.report("Analyzed target branch", 30)
}

// runStages executes each stage in order, applying enablement before
// invocation; one stage's error never affects its siblings
func (r *Runner) runStages(ctx context.Context, req ReviewRequest, state *ReviewState, files []host.FileChange) {
	for _, name := range stage.Names() {
		percent := stagePercents[name]
		result := state.StageResults[name]

		if !req.StageEnabled(name) {
			result.Status = StatusSkipped
			result.Summary = "Skipped: Stage disabled by user"
			state.Log(fmt.Sprintf("Stage %s skipped: disabled by user", name))
			r.report(fmt.Sprintf("Skipped %s", name.DisplayName()), percent)
			continue
		}

		r.report(fmt.Sprintf("Running %s", name.DisplayName()), percent)

		out, usage, err := r.invokeStage(ctx, name, files)
		if err != nil {
			result.Status = StatusError
			result.Summary = fmt.Sprintf("Error during %s: %v", name.DisplayName(), err)
			result.ErrorMessage = err.Error()
			state.Log(fmt.Sprintf("Stage %s failed: %v", name, err))
			r.report(fmt.Sprintf("%s failed", name.DisplayName()), percent)
			continue
		}

		result.Status = StatusSuccess
		result.Summary = out.Summary
		result.Findings = out.Issues
		result.Usage = Usage{
			InputUnits:  usage.PromptTokens,
			OutputUnits: usage.CompletionTokens,
			TotalUnits:  usage.TotalTokens,
		}
		state.ResourceUsage[name] = result.Usage
		state.Log(fmt.Sprintf("Stage %s completed (%d findings)", name, len(out.Issues)))
		r.report(fmt.Sprintf("Completed %s", name.DisplayName()), percent)
	}
}

// invokeStage calls the stage runner, converting a panic into a stage
// error so it stays contained in that stage's result
func (r *Runner) invokeStage(ctx context.Context, name stage.Name, files []host.FileChange) (out *stage.Output, usage llm.TokenUsage, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, usage = nil, llm.TokenUsage{}
			err = fmt.Errorf("stage panicked: %v", p)
		}
	}()
	return r.stages.Run(ctx, name, files)
}

// finalize aggregates usage and sets the terminal status. The terminal
// message reports pipeline completion only; per-stage fields carry any
// failure detail.
func (r *Runner) finalize(state *ReviewState) {
	r.report("Finalizing review report", 95)

	total := 0
	for _, result := range state.StageResults {
		if result.Status == StatusSuccess {
			total += result.Usage.TotalUnits
		}
	}
	state.TotalUnits = total

	state.StatusMessage = "Review completed successfully"
	state.UpdatedAt = time.Now().UTC()
	state.Log("Review completed successfully")

	r.report("Review completed", 100)
}

// report invokes the progress callback, swallowing any panic it raises
func (r *Runner) report(step string, percent int) {
	if r.progress == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Debug("Progress callback panicked", "step", step, "panic", p)
		}
	}()
	r.progress(step, percent)
}

// formatBranchContext renders a successful resolution as context text
func formatBranchContext(res *gitx.Resolution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target branch %s (%d context files)", res.Branch, len(res.Files))
	for _, f := range res.Files {
		b.WriteString("\n- ")
		b.WriteString(f)
	}
	return b.String()
}

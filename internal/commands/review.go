package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/tildaslashalef/revline/internal/app"
	"github.com/tildaslashalef/revline/internal/host"
	"github.com/tildaslashalef/revline/internal/pipeline"
	"github.com/tildaslashalef/revline/internal/report"
	"github.com/tildaslashalef/revline/internal/stage"
	"github.com/tildaslashalef/revline/internal/utils"
	"github.com/urfave/cli/v2"
)

// ReviewCommand returns the CLI command for reviewing a pull/merge request
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:      "review",
		Usage:     "Review a pull or merge request",
		ArgsUsage: "<change-url>",
		Description: "Runs the full review pipeline against a GitHub pull request or " +
			"GitLab merge request URL: security, bug, style, performance and test " +
			"analysis, each individually skippable.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "repo",
				Usage: "Repository clone URL (derived from the change URL when omitted)",
			},
			&cli.BoolFlag{
				Name:    "target-branch",
				Aliases: []string{"t"},
				Usage:   "Analyze the target branch for additional context",
			},
			&cli.StringSliceFlag{
				Name:    "disable",
				Aliases: []string{"d"},
				Usage:   "Disable a stage (security, bugs, style, performance, tests); repeatable",
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "Do not persist the review to the local database",
			},
			&cli.BoolFlag{
				Name:  "keep-clone",
				Usage: "Keep the working copy on disk after the review",
			},
		},
		Action: runReview,
	}
}

func runReview(c *cli.Context) error {
	application, err := app.FromContext(c)
	if err != nil {
		return err
	}

	changeURL := c.Args().First()
	if changeURL == "" {
		return fmt.Errorf("a pull/merge request URL is required")
	}

	repoURL := c.String("repo")
	if repoURL == "" {
		repoURL, err = deriveRepoURL(changeURL)
		if err != nil {
			return err
		}
	}

	enabled, err := parseDisabledStages(c.StringSlice("disable"))
	if err != nil {
		return err
	}

	analyzeTarget := c.Bool("target-branch") || application.Config.Review.AnalyzeTargetBranch

	jobID := application.Tracker.Start()
	reporter := application.Tracker.Reporter(jobID)

	progressFn := func(step string, percent int) {
		reporter(step, percent)
		utils.PrintInfo(fmt.Sprintf("[%3d%%] %s", percent, step))
	}

	runner, err := application.NewRunner(progressFn)
	if err != nil {
		application.Tracker.Fail(jobID, err.Error())
		return err
	}

	utils.PrintHeading("Reviewing " + changeURL)

	state := runner.Run(c.Context, pipeline.ReviewRequest{
		ChangeURL:           changeURL,
		RepoURL:             repoURL,
		AnalyzeTargetBranch: analyzeTarget,
		EnabledStages:       enabled,
	})
	application.Tracker.Complete(jobID, state)

	if !c.Bool("keep-clone") && state.WorkingCopyPath != "" {
		if err := application.Host.CleanupWorkingCopy(state.WorkingCopyPath); err != nil {
			utils.PrintWarning(fmt.Sprintf("Failed to remove working copy: %s", err))
		}
	}

	if !c.Bool("no-save") {
		if err := application.Reports.SaveReview(c.Context, state); err != nil {
			utils.PrintWarning(fmt.Sprintf("Failed to save review: %s", err))
		} else {
			utils.PrintInfo("Saved review " + color.YellowString("%s", state.ID))
		}
	}

	printReview(state)
	return nil
}

func printReview(state *pipeline.ReviewState) {
	utils.PrintDivider()
	fmt.Print(report.Render(state))
	utils.PrintDivider()

	utils.PrintTable(
		[]string{"Stage", "Status", "Findings", "Units"},
		report.SummaryRows(state),
	)

	if state.Succeeded() {
		utils.PrintSuccess(state.StatusMessage)
	} else {
		utils.PrintError(state.StatusMessage)
	}
}

// deriveRepoURL rebuilds the repository clone URL from a change URL
func deriveRepoURL(changeURL string) (string, error) {
	ref, err := host.ParseChangeURL(changeURL)
	if err != nil {
		return "", fmt.Errorf("cannot derive repository URL: %w", err)
	}
	return fmt.Sprintf("https://%s/%s/%s", ref.Host, ref.Owner, ref.Repo), nil
}

// parseDisabledStages converts --disable flags into the enablement map;
// stages not mentioned stay enabled
func parseDisabledStages(disabled []string) (map[stage.Name]bool, error) {
	if len(disabled) == 0 {
		return nil, nil
	}

	enabled := make(map[stage.Name]bool, len(disabled))
	for _, raw := range disabled {
		name, err := stage.ParseName(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return nil, err
		}
		enabled[name] = false
	}
	return enabled, nil
}

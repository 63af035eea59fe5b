package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
	"github.com/tildaslashalef/revline/internal/pipeline"
	"github.com/tildaslashalef/revline/internal/stage"
)

const renderWidth = 100

// Markdown renders a review state as a markdown document
func Markdown(state *pipeline.ReviewState) string {
	var b strings.Builder

	title := state.Title
	if title == "" {
		title = state.ChangeURL
	}
	fmt.Fprintf(&b, "# Review: %s\n\n", title)

	fmt.Fprintf(&b, "- **Change**: %s\n", state.ChangeURL)
	if state.Author != "" {
		fmt.Fprintf(&b, "- **Author**: %s\n", state.Author)
	}
	if state.SourceBranch != "" || state.TargetBranch != "" {
		fmt.Fprintf(&b, "- **Branches**: %s → %s\n", state.SourceBranch, state.TargetBranch)
	}
	fmt.Fprintf(&b, "- **Status**: %s\n", state.StatusMessage)
	fmt.Fprintf(&b, "- **Total units used**: %d\n\n", state.TotalUnits)

	for _, name := range stage.Names() {
		result, ok := state.StageResults[name]
		if !ok {
			continue
		}

		fmt.Fprintf(&b, "## %s\n\n", headingFor(name))

		switch result.Status {
		case pipeline.StatusSkipped:
			b.WriteString("_" + result.Summary + "_\n\n")
		case pipeline.StatusError:
			fmt.Fprintf(&b, "**Failed**: %s\n\n", result.ErrorMessage)
		case pipeline.StatusSuccess:
			if result.Summary != "" {
				b.WriteString(wordwrap.String(result.Summary, renderWidth) + "\n\n")
			}
			for _, issue := range result.Findings {
				fmt.Fprintf(&b, "### %s (%s)\n\n", issue.Title, issue.Severity)
				if issue.Description != "" {
					b.WriteString(wordwrap.String(issue.Description, renderWidth) + "\n\n")
				}
				if issue.LineStart > 0 {
					fmt.Fprintf(&b, "Lines %d–%d\n\n", issue.LineStart, issue.LineEnd)
				}
				if issue.AffectedCode != "" {
					fmt.Fprintf(&b, "```\n%s\n```\n\n", issue.AffectedCode)
				}
				if issue.Suggestion != "" {
					fmt.Fprintf(&b, "**Suggestion**: %s\n\n", wordwrap.String(issue.Suggestion, renderWidth))
				}
			}
		}
	}

	if state.TargetBranchContext != nil {
		b.WriteString("## Target branch context\n\n")
		b.WriteString("```\n" + *state.TargetBranchContext + "\n```\n")
	}

	return b.String()
}

// Render renders a review state for the terminal, falling back to plain
// markdown when the terminal renderer cannot be created
func Render(state *pipeline.ReviewState) string {
	md := Markdown(state)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return md
	}

	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// SummaryRows returns one table row per stage for compact listings
func SummaryRows(state *pipeline.ReviewState) [][]string {
	rows := make([][]string, 0, len(stage.Names()))
	for _, name := range stage.Names() {
		result, ok := state.StageResults[name]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			string(name),
			string(result.Status),
			fmt.Sprintf("%d", len(result.Findings)),
			fmt.Sprintf("%d", result.Usage.TotalUnits),
		})
	}
	return rows
}

func headingFor(name stage.Name) string {
	display := name.DisplayName()
	return strings.ToUpper(display[:1]) + display[1:]
}

package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/revline/internal/pipeline"
	"github.com/tildaslashalef/revline/internal/stage"
)

func TestMarkdown(t *testing.T) {
	state := sampleState()
	state.StageResults[stage.Security].Summary = "One injection risk found."
	state.StageResults[stage.Bugs].Status = pipeline.StatusError
	state.StageResults[stage.Bugs].ErrorMessage = "rate limited"

	md := Markdown(state)

	assert.Contains(t, md, "# Review: Add login endpoint")
	assert.Contains(t, md, "feature/login → main")
	assert.Contains(t, md, "## Security review")
	assert.Contains(t, md, "One injection risk found.")
	assert.Contains(t, md, "### Token in query string (high)")
	assert.Contains(t, md, "**Failed**: rate limited")
	assert.Contains(t, md, "_Skipped: Stage disabled by user_")
	assert.Contains(t, md, "## Target branch context")
}

func TestMarkdownFallsBackToChangeURL(t *testing.T) {
	state := sampleState()
	state.Title = ""

	md := Markdown(state)
	assert.Contains(t, md, "# Review: https://github.com/acme/widgets/pull/7")
}

func TestSummaryRows(t *testing.T) {
	state := sampleState()
	state.StageResults[stage.Security].Usage = pipeline.Usage{TotalUnits: 150}

	rows := SummaryRows(state)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"security", "success", "1", "150"}, rows[0])
	assert.Equal(t, []string{"style", "skipped", "0", "0"}, rows[2])
}

func TestRenderDoesNotPanic(t *testing.T) {
	out := Render(sampleState())
	assert.NotEmpty(t, out)
}

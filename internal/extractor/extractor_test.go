package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/revline/internal/loggy"
)

func newTestExtractor() *JSONExtractor {
	return NewJSONExtractor(loggy.NewNoopLogger())
}

func TestExtractReviewOutput(t *testing.T) {
	e := newTestExtractor()

	t.Run("plain JSON", func(t *testing.T) {
		content := `{
			"summary": "One issue found",
			"issues": [
				{
					"type": "bug",
					"severity": "high",
					"title": "Nil map write",
					"description": "Writes to an uninitialized map",
					"line_start": 10,
					"line_end": 12,
					"suggestion": "Initialize the map before use"
				}
			],
			"overall_assessment": "Needs a fix before merging"
		}`

		out, err := e.ExtractReviewOutput(content)
		require.NoError(t, err)
		assert.Equal(t, "One issue found", out.Summary)
		require.Len(t, out.Issues, 1)
		assert.Equal(t, "bug", out.Issues[0].Type)
		assert.Equal(t, "high", out.Issues[0].Severity)
		assert.Equal(t, 10, out.Issues[0].LineStart)
		assert.Equal(t, 12, out.Issues[0].LineEnd)
	})

	t.Run("JSON inside markdown fence", func(t *testing.T) {
		content := "Here is my review:\n```json\n" +
			`{"summary":"Clean","issues":[],"overall_assessment":"Ship it"}` +
			"\n```\nLet me know if you need more."

		out, err := e.ExtractReviewOutput(content)
		require.NoError(t, err)
		assert.Equal(t, "Clean", out.Summary)
		assert.Empty(t, out.Issues)
		assert.Equal(t, "Ship it", out.OverallAssessment)
	})

	t.Run("line numbers as strings", func(t *testing.T) {
		content := `{"summary":"s","issues":[{"type":"style","title":"Long line","line_start":"5","line_end":"5"}],"overall_assessment":"ok"}`

		out, err := e.ExtractReviewOutput(content)
		require.NoError(t, err)
		require.Len(t, out.Issues, 1)
		assert.Equal(t, 5, out.Issues[0].LineStart)
	})

	t.Run("defaults applied to sparse issues", func(t *testing.T) {
		content := `{"summary":"s","issues":[{"description":"something"}]}`

		out, err := e.ExtractReviewOutput(content)
		require.NoError(t, err)
		require.Len(t, out.Issues, 1)
		assert.Equal(t, "unknown", out.Issues[0].Type)
		assert.Equal(t, "medium", out.Issues[0].Severity)
		assert.Equal(t, "Unspecified issue", out.Issues[0].Title)
		assert.Equal(t, "Code needs review.", out.OverallAssessment)
	})

	t.Run("null issues treated as empty", func(t *testing.T) {
		content := `{"summary":"s","issues":null,"overall_assessment":"fine"}`

		out, err := e.ExtractReviewOutput(content)
		require.NoError(t, err)
		assert.Empty(t, out.Issues)
	})

	t.Run("trailing commas repaired", func(t *testing.T) {
		content := `{"summary":"s","issues":[{"type":"bug","title":"t",},],"overall_assessment":"ok",}`

		out, err := e.ExtractReviewOutput(content)
		require.NoError(t, err)
		require.Len(t, out.Issues, 1)
		assert.Equal(t, "t", out.Issues[0].Title)
	})

	t.Run("no JSON present", func(t *testing.T) {
		_, err := e.ExtractReviewOutput("I could not analyze this change.")
		assert.Error(t, err)
	})
}

func TestExtractJSON(t *testing.T) {
	t.Run("balanced braces fallback", func(t *testing.T) {
		content := `noise before {"a": {"b": 1}} noise after`
		got, err := extractJSON(content)
		require.NoError(t, err)
		assert.Equal(t, `{"a": {"b": 1}}`, got)
	})

	t.Run("prefers fenced block", func(t *testing.T) {
		content := "```json\n{\"summary\":\"x\"}\n```"
		got, err := extractJSON(content)
		require.NoError(t, err)
		assert.Equal(t, `{"summary":"x"}`, got)
	})
}

func TestCodeBlockPlaceholders(t *testing.T) {
	placeholders := make(map[string]string)
	input := `{"affected_code":"if x {\n\treturn\n}","title":"t"}`
	sanitized := extractAndReplaceCodeBlocks(input, placeholders)

	assert.Contains(t, sanitized, "AFFECTED_CODE_PLACEHOLDER_0")
	assert.Len(t, placeholders, 1)

	restored := restoreCodeBlock("AFFECTED_CODE_PLACEHOLDER_0", placeholders)
	assert.Equal(t, "if x {\n\treturn\n}", restored)
}

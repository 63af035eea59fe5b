package stage

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/revline/internal/host"
	"github.com/tildaslashalef/revline/internal/llm"
	"github.com/tildaslashalef/revline/internal/loggy"
)

// fakeLLM returns a canned response and records the requests it saw
type fakeLLM struct {
	response *llm.ChatResponse
	err      error
	requests []llm.ChatRequest
}

func (f *fakeLLM) GenerateChat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func sampleFiles() []host.FileChange {
	return []host.FileChange{
		{
			Path:      "auth/login.go",
			Status:    host.StatusModified,
			Additions: 12,
			Deletions: 3,
			Diff:      "@@ -1,3 +1,4 @@\n+token := r.URL.Query().Get(\"token\")\n",
			Language:  "Go",
		},
	}
}

func TestAnalyzerRun(t *testing.T) {
	t.Run("structured response", func(t *testing.T) {
		client := &fakeLLM{
			response: &llm.ChatResponse{
				Content: `{"summary": "One injection risk found.", "issues": [{"type": "security", "severity": "high", "title": "Token from query string", "description": "Tokens in URLs leak into logs.", "line_start": 2, "line_end": 2, "suggestion": "Read the token from a header."}], "overall_assessment": "Needs changes."}`,
				Usage:   llm.TokenUsage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140},
			},
		}

		a := NewAnalyzer(client, loggy.NewNoopLogger())
		out, usage, err := a.Run(context.Background(), Security, sampleFiles())

		require.NoError(t, err)
		assert.True(t, out.Structured)
		assert.Equal(t, "One injection risk found.", out.Summary)
		assert.Equal(t, "Needs changes.", out.Assessment)
		require.Len(t, out.Issues, 1)
		assert.Equal(t, "high", out.Issues[0].Severity)
		assert.True(t, strings.HasPrefix(out.Issues[0].ID, "find-"), "findings get a prefixed ID")
		assert.Equal(t, 140, usage.TotalTokens)

		// The request carries the stage prompt and the formatted change set
		require.Len(t, client.requests, 1)
		req := client.requests[0]
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "auth/login.go")
		assert.NotNil(t, req.FormatOptions)
	})

	t.Run("free text fallback", func(t *testing.T) {
		client := &fakeLLM{
			response: &llm.ChatResponse{Content: "The change looks fine to me overall."},
		}

		a := NewAnalyzer(client, loggy.NewNoopLogger())
		out, _, err := a.Run(context.Background(), Bugs, sampleFiles())

		require.NoError(t, err)
		assert.False(t, out.Structured)
		assert.Equal(t, "The change looks fine to me overall.", out.Summary)
		assert.Empty(t, out.Issues)
	})

	t.Run("client error", func(t *testing.T) {
		client := &fakeLLM{err: fmt.Errorf("connection refused")}

		a := NewAnalyzer(client, loggy.NewNoopLogger())
		_, _, err := a.Run(context.Background(), Performance, sampleFiles())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "performance analysis")
	})

	t.Run("empty response", func(t *testing.T) {
		client := &fakeLLM{response: &llm.ChatResponse{Content: ""}}

		a := NewAnalyzer(client, loggy.NewNoopLogger())
		_, _, err := a.Run(context.Background(), Tests, sampleFiles())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty response")
	})
}

func TestFormatChanges(t *testing.T) {
	files := []host.FileChange{
		{
			Path:      "pkg/api/server.go",
			Status:    host.StatusModified,
			Additions: 5,
			Deletions: 2,
			Diff:      "@@ -10,2 +10,5 @@\n+func handle() {}\n",
		},
		{
			Path:    "pkg/api/v2/server.go",
			OldPath: "pkg/api/old/server.go",
			Status:  host.StatusRenamed,
		},
	}

	text := FormatChanges(files)

	assert.Contains(t, text, "Total files changed: 2")
	assert.Contains(t, text, "File: pkg/api/server.go")
	assert.Contains(t, text, "Status: MODIFIED")
	assert.Contains(t, text, "Changes: +5 lines added, -2 lines removed")
	assert.Contains(t, text, "DIFF:")
	assert.Contains(t, text, "Renamed from: pkg/api/old/server.go")
	assert.Contains(t, text, "No diff content available")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []Name{Security, Bugs, Style, Performance, Tests}, Names())

	assert.Equal(t, "bug detection", Bugs.DisplayName())
	assert.Equal(t, "test suggestions", Tests.DisplayName())

	n, err := ParseName("style")
	require.NoError(t, err)
	assert.Equal(t, Style, n)

	_, err = ParseName("linting")
	assert.Error(t, err)
}

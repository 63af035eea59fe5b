package stage

import (
	"context"
	"fmt"

	"github.com/tildaslashalef/revline/internal/extractor"
	"github.com/tildaslashalef/revline/internal/host"
	"github.com/tildaslashalef/revline/internal/llm"
	"github.com/tildaslashalef/revline/internal/loggy"
	"github.com/tildaslashalef/revline/internal/ulid"
)

// Output is the normalized result of one analysis stage
type Output struct {
	Summary    string
	Assessment string
	Issues     []extractor.Issue
	// Structured is false when the model response could not be parsed and
	// Summary carries the raw free-text reply
	Structured bool
}

// reviewFormat asks providers with native structured output for the
// review JSON shape; providers without it ignore this and the extractor
// recovers the JSON from free text.
var reviewFormat = &llm.FormatOptions{
	Type: "object",
	Properties: map[string]interface{}{
		"summary":            map[string]interface{}{"type": "string"},
		"issues":             map[string]interface{}{"type": "array"},
		"overall_assessment": map[string]interface{}{"type": "string"},
	},
	Required: []string{"summary", "issues", "overall_assessment"},
}

// Analyzer runs review stages against an LLM client
type Analyzer struct {
	client    llm.Client
	extractor *extractor.JSONExtractor
	logger    *loggy.Logger
}

// NewAnalyzer creates an analyzer using the given LLM client
func NewAnalyzer(client llm.Client, logger *loggy.Logger) *Analyzer {
	return &Analyzer{
		client:    client,
		extractor: extractor.NewJSONExtractor(logger),
		logger:    logger,
	}
}

// Run executes one named stage over the change set. It returns the
// normalized output and the token usage of the underlying request. The
// structured/free-text distinction is resolved here; callers only see
// Output.
func (a *Analyzer) Run(ctx context.Context, name Name, files []host.FileChange) (*Output, llm.TokenUsage, error) {
	system, ok := systemPrompts[name]
	if !ok {
		return nil, llm.TokenUsage{}, fmt.Errorf("unknown stage: %s", name)
	}

	req := llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: userIntros[name] + "\n\n" + FormatChanges(files)},
		},
		FormatOptions: reviewFormat,
	}

	resp, err := a.client.GenerateChat(ctx, req)
	if err != nil {
		return nil, llm.TokenUsage{}, fmt.Errorf("%s failed: %w", name.DisplayName(), err)
	}
	if resp.Content == "" {
		return nil, resp.Usage, fmt.Errorf("%s returned an empty response", name.DisplayName())
	}

	out := a.normalize(name, resp.Content)
	return out, resp.Usage, nil
}

// normalize parses the model reply into structured output, degrading to
// free text when no JSON can be recovered. Kept findings are stamped with
// a finding ID.
func (a *Analyzer) normalize(name Name, content string) *Output {
	parsed, err := a.extractor.ExtractReviewOutput(content)
	if err != nil {
		a.logger.Debug("Stage response is not structured, keeping free text",
			"stage", string(name), "error", err)
		return &Output{Summary: content}
	}

	for i := range parsed.Issues {
		if parsed.Issues[i].ID == "" {
			parsed.Issues[i].ID = ulid.FindingID()
		}
	}

	return &Output{
		Summary:    parsed.Summary,
		Assessment: parsed.OverallAssessment,
		Issues:     parsed.Issues,
		Structured: true,
	}
}

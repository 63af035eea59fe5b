package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tildaslashalef/revline/internal/claude"
	"github.com/tildaslashalef/revline/internal/config"
)

// claudeClientAdapter adapts the Claude client to the LLM Client interface
type claudeClientAdapter struct {
	client  *claude.Client
	config  *config.Config
	limiter *rate.Limiter
}

// newClaudeClientAdapter creates a new Claude client adapter
func newClaudeClientAdapter(client *claude.Client, cfg *config.Config, limiter *rate.Limiter) *claudeClientAdapter {
	return &claudeClientAdapter{
		client:  client,
		config:  cfg,
		limiter: limiter,
	}
}

// GenerateChat implements the Client interface for Claude
// Claude has no native structured output mode; FormatOptions are ignored
// and callers fall back to extracting JSON from the response text.
func (a *claudeClientAdapter) GenerateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	// Wait for rate limiter
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	// Claude requires system instructions outside of the messages array
	var system string
	var messages []claude.Message
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			system = msg.Content
			continue
		}
		messages = append(messages, claude.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	claudeReq := claude.ChatRequest{
		Model:     req.Model,
		Messages:  messages,
		System:    system,
		MaxTokens: req.MaxTokens,
	}

	if req.Temperature > 0 {
		temp := req.Temperature
		claudeReq.Temperature = &temp
	}

	resp, err := a.client.GenerateChat(ctx, claudeReq)
	if err != nil {
		return nil, fmt.Errorf("claude chat generation failed: %w", err)
	}

	usage := TokenUsage{}
	if resp.Usage != nil {
		usage = TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}

	return &ChatResponse{
		Content:   resp.Text(),
		Model:     resp.Model,
		Completed: true,
		Usage:     usage,
		Error:     resp.ErrorMsg,
	}, nil
}

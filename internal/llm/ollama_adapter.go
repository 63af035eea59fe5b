package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/ollama"
)

// ollamaClientAdapter adapts the Ollama client to the LLM Client interface
type ollamaClientAdapter struct {
	client  *ollama.Client
	config  *config.Config
	limiter *rate.Limiter
}

// newOllamaClientAdapter creates a new Ollama client adapter
func newOllamaClientAdapter(client *ollama.Client, cfg *config.Config, limiter *rate.Limiter) *ollamaClientAdapter {
	return &ollamaClientAdapter{
		client:  client,
		config:  cfg,
		limiter: limiter,
	}
}

// GenerateChat implements the Client interface for Ollama
func (a *ollamaClientAdapter) GenerateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	// Wait for rate limiter
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	// Create base request
	ollamaReq := ollama.ChatRequest{
		Model:    req.Model,
		Messages: convertMessagesToOllama(req.Messages),
	}

	// Ollama supports structured output natively through the format field
	if req.FormatOptions != nil {
		ollamaReq.Format = &ollama.ResponseFormat{
			Type:       req.FormatOptions.Type,
			Properties: req.FormatOptions.Properties,
			Required:   req.FormatOptions.Required,
		}
	}

	// Set options
	options := &ollama.RequestOptions{}
	if req.MaxTokens > 0 {
		numPredict := req.MaxTokens
		options.NumPredict = &numPredict
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		options.Temperature = &temp
	}

	if options.Temperature != nil || options.NumPredict != nil {
		ollamaReq.Options = options
	}

	// Make the request
	resp, err := a.client.GenerateChat(ctx, ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("ollama chat generation failed: %w", err)
	}

	// Convert to ChatResponse
	return &ChatResponse{
		Content:   resp.Message.Content,
		Model:     resp.Model,
		Completed: resp.Done,
		Usage: TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
		Error: resp.Error,
	}, nil
}

// Helper to convert message format
func convertMessagesToOllama(messages []Message) []ollama.Message {
	ollamaMessages := make([]ollama.Message, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = ollama.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return ollamaMessages
}

// Package llm provides a provider-agnostic client interface over the
// supported model backends, with per-provider rate limiting.
package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tildaslashalef/revline/internal/claude"
	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/loggy"
	"github.com/tildaslashalef/revline/internal/ollama"
)

// ChatRequest represents a generic chat request to any LLM
type ChatRequest struct {
	Model         string         `json:"model"`
	Messages      []Message      `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Temperature   float64        `json:"temperature,omitempty"`
	FormatOptions *FormatOptions `json:"format_options,omitempty"`
}

// Message represents a chat message with role and content
type Message struct {
	Role    string `json:"role"` // user, assistant, or system
	Content string `json:"content"`
}

// TokenUsage represents token consumption for a single request
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse represents a response from a chat request
type ChatResponse struct {
	Content   string     `json:"content"`
	Model     string     `json:"model"`
	Completed bool       `json:"completed"`
	Usage     TokenUsage `json:"usage"`
	Error     string     `json:"error,omitempty"`
}

// FormatOptions represents the structured output format options
// Providers that do not support structured output ignore these and
// return free text; callers must be prepared to parse either.
type FormatOptions struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
}

// Client defines the interface for LLM clients
type Client interface {
	// GenerateChat sends a non-streaming chat request
	GenerateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ClientType defines the type of LLM client
type ClientType string

const (
	// Ollama client type
	Ollama ClientType = "ollama"

	// Claude client type
	Claude ClientType = "claude"
)

// Factory creates and returns LLM clients
type Factory struct {
	config *config.Config
	ollama *ollama.Client
	claude *claude.Client
	logger *loggy.Logger

	ollamaLimiter *rate.Limiter
	claudeLimiter *rate.Limiter
}

// helper function to create a rate limiter from RPM and Burst
func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		// If RPM is zero or negative, allow infinite rate (no limiting)
		return rate.NewLimiter(rate.Inf, burst)
	}
	// Calculate rate per second
	r := rate.Limit(float64(rpm) / 60.0)
	// Burst should be at least 1
	b := burst
	if b <= 0 {
		b = 1
	}
	return rate.NewLimiter(r, b)
}

// NewFactory creates a new LLM client factory
func NewFactory(cfg *config.Config, logger *loggy.Logger) *Factory {
	f := &Factory{
		config: cfg,
		logger: logger,
	}

	// Initialize Ollama client and limiter if configured
	if cfg.Ollama.Endpoint != "" {
		f.ollama = ollama.NewClient(cfg.Ollama)
		f.ollamaLimiter = newLimiter(cfg.Ollama.RequestsPerMinute, cfg.Ollama.BurstLimit)
		loggy.Info("initialized Ollama client", "endpoint", cfg.Ollama.Endpoint, "rpm", cfg.Ollama.RequestsPerMinute, "burst", cfg.Ollama.BurstLimit)
	}

	// Initialize Claude client and limiter if configured
	if cfg.Claude.APIKey != "" {
		f.claude = claude.NewClient(cfg.Claude)
		f.claudeLimiter = newLimiter(cfg.Claude.RequestsPerMinute, cfg.Claude.BurstLimit)
		loggy.Info("initialized Claude client", "base_url", cfg.Claude.BaseURL, "model", cfg.Claude.Model, "rpm", cfg.Claude.RequestsPerMinute, "burst", cfg.Claude.BurstLimit)
	}

	return f
}

// GetClient returns an LLM client of the specified type
func (f *Factory) GetClient(clientType ClientType) (Client, error) {
	switch clientType {
	case Ollama:
		if f.ollama == nil {
			return nil, fmt.Errorf("Ollama client not initialized - check configuration")
		}
		return newOllamaClientAdapter(f.ollama, f.config, f.ollamaLimiter), nil

	case Claude:
		if f.claude == nil {
			return nil, fmt.Errorf("Claude client not initialized - check configuration")
		}
		return newClaudeClientAdapter(f.claude, f.config, f.claudeLimiter), nil

	default:
		return nil, fmt.Errorf("unknown client type: %s", clientType)
	}
}

// GetDefaultClient returns the default client based on configuration
func (f *Factory) GetDefaultClient() (Client, ClientType, error) {
	defaultType := ClientType(f.config.DefaultLLMProvider)

	// Try getting the default client first
	client, err := f.GetClient(defaultType)
	if err == nil {
		return client, defaultType, nil
	}

	// Fallback to first available client
	f.logger.Warn("Default LLM provider not available, falling back", "default", defaultType, "error", err)

	if f.claude != nil {
		return newClaudeClientAdapter(f.claude, f.config, f.claudeLimiter), Claude, nil
	}
	if f.ollama != nil {
		return newOllamaClientAdapter(f.ollama, f.config, f.ollamaLimiter), Ollama, nil
	}
	return nil, "", fmt.Errorf("no LLM clients initialized - check configuration")
}

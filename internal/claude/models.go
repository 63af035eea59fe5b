package claude

import (
	"fmt"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // user, assistant, or system
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request to Claude API
type ChatRequest struct {
	Model         string    `json:"model"`                    // Claude model to use
	Messages      []Message `json:"messages"`                 // Chat history messages
	System        string    `json:"system,omitempty"`         // System instructions
	MaxTokens     int       `json:"max_tokens,omitempty"`     // Maximum tokens to generate
	Temperature   *float64  `json:"temperature,omitempty"`    // Controls randomness
	TopP          *float64  `json:"top_p,omitempty"`          // Nucleus sampling parameter
	TopK          *int      `json:"top_k,omitempty"`          // Top-k sampling parameter
	Stream        bool      `json:"stream,omitempty"`         // Whether to stream the response
	StopSequences []string  `json:"stop_sequences,omitempty"` // Sequences that cause generation to stop
}

// ContentBlock represents a block of content in a response
// Claude responses can contain multiple content blocks of different types
type ContentBlock struct {
	Type string `json:"type"` // Content type (e.g., "text", "thinking")
	Text string `json:"text"` // The actual content text
}

// ChatResponse represents a response from the chat completion endpoint
type ChatResponse struct {
	ID         string         `json:"id,omitempty"`          // Response ID
	Model      string         `json:"model,omitempty"`       // Model used
	Message    Message        `json:"message,omitempty"`     // Response message
	Done       bool           `json:"done,omitempty"`        // Indicates completion
	ErrorMsg   string         `json:"error,omitempty"`       // Error message if any
	Usage      *UsageInfo     `json:"usage,omitempty"`       // Token usage information
	Content    []ContentBlock `json:"content,omitempty"`     // Response content blocks
	StopReason string         `json:"stop_reason,omitempty"` // Reason why generation stopped
}

// Text returns the concatenated text of all text content blocks
func (r *ChatResponse) Text() string {
	var text string
	for _, block := range r.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		text = r.Message.Content
	}
	return text
}

// UsageInfo contains token usage information for a request
type UsageInfo struct {
	InputTokens  int `json:"input_tokens"`  // Number of input tokens
	OutputTokens int `json:"output_tokens"` // Number of output tokens
}

// APIError represents an error response from the Claude API
type APIError struct {
	Type         string `json:"type"`
	ErrorDetails struct {
		Type    string `json:"type"`    // Error type
		Message string `json:"message"` // Error message
	} `json:"error"`
}

// Error implements the error interface for APIError
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorDetails.Type, e.ErrorDetails.Message)
}

package ollama

import (
	"time"
)

// Message represents a chat message with role and content
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // Message content
}

// ChatRequest represents a request to the /api/chat endpoint
type ChatRequest struct {
	Model    string          `json:"model"`             // Model name (required)
	Messages []Message       `json:"messages"`          // Chat messages
	Format   *ResponseFormat `json:"format,omitempty"`  // Optional format specification
	Stream   bool            `json:"stream"`            // Whether to stream the response
	Options  *RequestOptions `json:"options,omitempty"` // Optional generation parameters
}

// ChatResponse represents a response from the /api/chat endpoint
type ChatResponse struct {
	Model              string    `json:"model"`                    // Model name
	CreatedAt          time.Time `json:"created_at"`               // Creation timestamp
	Message            Message   `json:"message"`                  // Response message
	Done               bool      `json:"done"`                     // Whether generation is complete
	DoneReason         string    `json:"done_reason,omitempty"`    // Reason for completion
	TotalDuration      int64     `json:"total_duration,omitempty"` // Total time in nanoseconds
	LoadDuration       int64     `json:"load_duration,omitempty"`  // Model load time in nanoseconds
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"`
	EvalCount          int       `json:"eval_count,omitempty"`
	EvalDuration       int64     `json:"eval_duration,omitempty"`
	Error              string    `json:"error,omitempty"` // Error message if any
}

// ResponseFormat specifies structured output format
type ResponseFormat struct {
	Type       string                 `json:"type"`                 // Format type, e.g., "json"
	Properties map[string]interface{} `json:"properties,omitempty"` // Properties for JSON schema
	Required   []string               `json:"required,omitempty"`   // Required fields
}

// VersionResponse represents the response from the /api/version endpoint
type VersionResponse struct {
	Version string `json:"version"`
}

// RequestOptions contains optional parameters for generation requests
type RequestOptions struct {
	// Temperature controls randomness in generation (0.0 to 1.0)
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP controls diversity through nucleus sampling (0.0 to 1.0)
	TopP *float64 `json:"top_p,omitempty"`

	// TopK controls vocabulary size in sampling
	TopK *int `json:"top_k,omitempty"`

	// Seed for deterministic sampling
	Seed *int `json:"seed,omitempty"`

	// NumPredict is the maximum number of tokens to generate
	NumPredict *int `json:"num_predict,omitempty"`

	// NumCtx is the size of the context window
	NumCtx *int `json:"num_ctx,omitempty"`

	// RepeatPenalty penalizes repetitions (1.0 = no penalty)
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`

	// Stop sequences that trigger end of generation
	Stop []string `json:"stop,omitempty"`
}

// Float64Ptr creates a float64 pointer from a value
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr creates an int pointer from a value
func IntPtr(v int) *int {
	return &v
}

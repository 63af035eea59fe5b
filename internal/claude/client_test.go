package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/revline/internal/config"
)

func setupTestServer(_ *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	server := httptest.NewServer(handler)

	cfg := config.ClaudeConfig{
		APIKey:     "test-api-key",
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}

	client := NewClient(cfg)
	return server, client
}

func TestNewClient(t *testing.T) {
	cases := []struct {
		name            string
		baseURL         string
		expectedBaseURL string
	}{
		{
			name:            "normal URL",
			baseURL:         "https://api.anthropic.com",
			expectedBaseURL: "https://api.anthropic.com",
		},
		{
			name:            "URL with trailing slash",
			baseURL:         "https://api.anthropic.com/",
			expectedBaseURL: "https://api.anthropic.com",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.ClaudeConfig{
				APIKey:     "test-key",
				BaseURL:    tc.baseURL,
				Timeout:    10 * time.Second,
				MaxRetries: 3,
			}

			client := NewClient(cfg)
			assert.Equal(t, tc.expectedBaseURL, client.baseURL)
			assert.Equal(t, "test-key", client.apiKey)
			assert.Equal(t, 3, client.maxRetries)
			assert.NotNil(t, client.httpClient)
		})
	}
}

func TestGenerateChat(t *testing.T) {
	t.Run("successful request", func(t *testing.T) {
		server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
			assert.NotEmpty(t, r.Header.Get("anthropic-version"))

			var req ChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.False(t, req.Stream)

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(ChatResponse{
				ID:    "msg_123",
				Model: req.Model,
				Content: []ContentBlock{
					{Type: "text", Text: "looks fine to me"},
				},
				Usage: &UsageInfo{InputTokens: 12, OutputTokens: 5},
			})
		})
		defer server.Close()

		resp, err := client.GenerateChat(context.Background(), ChatRequest{
			Model:    "claude-3-opus-20240229",
			Messages: []Message{{Role: "user", Content: "Hello"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "looks fine to me", resp.Text())
		require.NotNil(t, resp.Usage)
		assert.Equal(t, 12, resp.Usage.InputTokens)
		assert.Equal(t, 5, resp.Usage.OutputTokens)
	})

	t.Run("default model used when not specified", func(t *testing.T) {
		var receivedModel string
		server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			var req ChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			receivedModel = req.Model

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(ChatResponse{Model: req.Model})
		})
		defer server.Close()

		_, err := client.GenerateChat(context.Background(), ChatRequest{
			Messages: []Message{{Role: "user", Content: "Hello"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "claude-3-5-sonnet-20241022", receivedModel)
	})

	t.Run("API error response", func(t *testing.T) {
		server, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"missing messages"}}`))
		})
		defer server.Close()

		_, err := client.GenerateChat(context.Background(), ChatRequest{
			Model: "claude-3-opus-20240229",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid_request_error")
	})
}

func TestChatResponseText(t *testing.T) {
	resp := &ChatResponse{
		Content: []ContentBlock{
			{Type: "thinking", Text: "hmm"},
			{Type: "text", Text: "part one "},
			{Type: "text", Text: "part two"},
		},
	}
	assert.Equal(t, "part one part two", resp.Text())

	// Falls back to the message content when no text blocks are present
	resp = &ChatResponse{Message: Message{Role: "assistant", Content: "fallback"}}
	assert.Equal(t, "fallback", resp.Text())
}

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/loggy"
)

// Client is the Ollama API client
type Client struct {
	// Config for the client
	config config.OllamaConfig

	// HTTP client for API requests
	httpClient *http.Client
}

// NewClient creates a new Ollama client with the provided configuration
func NewClient(cfg config.OllamaConfig) *Client {
	// Create HTTP client with timeout from config
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		},
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// GetVersion returns the Ollama server version
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	var resp VersionResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/api/version", nil, &resp); err != nil {
		return "", fmt.Errorf("getting version: %w", err)
	}
	return resp.Version, nil
}

// GenerateChat sends a chat completion request
func (c *Client) GenerateChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	// Use default model if none specified
	if req.Model == "" {
		req.Model = c.config.Model
	}

	// Explicitly set streaming to false for non-streaming requests
	req.Stream = false

	var resp ChatResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, fmt.Errorf("generating chat completion: %w", err)
	}

	// Check for errors in the response
	if resp.Error != "" {
		return &resp, fmt.Errorf("model error: %s", resp.Error)
	}

	return &resp, nil
}

// makeRequest is a helper method to make HTTP requests to the Ollama API
func (c *Client) makeRequest(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}) error {
	url := fmt.Sprintf("%s%s", c.config.Endpoint, path)

	var bodyReader io.Reader
	if reqBody != nil {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)

		loggy.Debug("Sending OLLAMA LLM request",
			"method", method,
			"url", url)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	// Set headers
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	// Read response body
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	// Check for non-200 status
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	// Check for empty response
	if len(bodyBytes) == 0 {
		return fmt.Errorf("empty response body")
	}

	// Unmarshal response
	if err := json.Unmarshal(bodyBytes, respBody); err != nil {
		// Try to extract JSON if the response might contain additional text
		if extractedJSON, extractErr := extractJSON(string(bodyBytes)); extractErr == nil {
			if unmarshalErr := json.Unmarshal([]byte(extractedJSON), respBody); unmarshalErr == nil {
				// Successfully extracted and unmarshaled JSON
				return nil
			}
		}

		// Return original error if extraction failed
		return fmt.Errorf("unmarshaling response body: %w", err)
	}

	return nil
}

// extractJSON attempts to extract a JSON object from a string that might contain additional text
func extractJSON(input string) (string, error) {
	// Find the first occurrence of '{'
	start := strings.Index(input, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found")
	}

	// Find the matching closing brace
	braceCount := 1
	for i := start + 1; i < len(input); i++ {
		if input[i] == '{' {
			braceCount++
		} else if input[i] == '}' {
			braceCount--
			if braceCount == 0 {
				// Found the end of the JSON object
				return input[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("incomplete JSON object")
}

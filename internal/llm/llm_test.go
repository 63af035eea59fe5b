package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/loggy"
	"golang.org/x/time/rate"
)

func TestNewFactory(t *testing.T) {
	logger := loggy.NewNoopLogger()

	tests := []struct {
		name               string
		config             *config.Config
		expectOllamaClient bool
		expectClaudeClient bool
	}{
		{
			name: "ollama only",
			config: &config.Config{
				Ollama: config.OllamaConfig{
					Endpoint: "http://localhost:11434",
				},
				Claude: config.ClaudeConfig{
					APIKey: "",
				},
				DefaultLLMProvider: "ollama",
			},
			expectOllamaClient: true,
			expectClaudeClient: false,
		},
		{
			name: "claude only",
			config: &config.Config{
				Ollama: config.OllamaConfig{
					Endpoint: "",
				},
				Claude: config.ClaudeConfig{
					APIKey: "test-key",
				},
				DefaultLLMProvider: "claude",
			},
			expectOllamaClient: false,
			expectClaudeClient: true,
		},
		{
			name: "both clients",
			config: &config.Config{
				Ollama: config.OllamaConfig{
					Endpoint: "http://localhost:11434",
				},
				Claude: config.ClaudeConfig{
					APIKey: "test-key",
				},
				DefaultLLMProvider: "ollama",
			},
			expectOllamaClient: true,
			expectClaudeClient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewFactory(tt.config, logger)

			ollamaClient, err := factory.GetClient(Ollama)
			if tt.expectOllamaClient {
				assert.NoError(t, err)
				assert.NotNil(t, ollamaClient)
			} else {
				assert.Error(t, err)
				assert.Nil(t, ollamaClient)
			}

			claudeClient, err := factory.GetClient(Claude)
			if tt.expectClaudeClient {
				assert.NoError(t, err)
				assert.NotNil(t, claudeClient)
			} else {
				assert.Error(t, err)
				assert.Nil(t, claudeClient)
			}
		})
	}
}

func TestGetDefaultClient(t *testing.T) {
	logger := loggy.NewNoopLogger()

	t.Run("default provider available", func(t *testing.T) {
		factory := NewFactory(&config.Config{
			Ollama:             config.OllamaConfig{Endpoint: "http://localhost:11434"},
			DefaultLLMProvider: "ollama",
		}, logger)

		client, clientType, err := factory.GetDefaultClient()
		assert.NoError(t, err)
		assert.NotNil(t, client)
		assert.Equal(t, Ollama, clientType)
	})

	t.Run("falls back when default unavailable", func(t *testing.T) {
		factory := NewFactory(&config.Config{
			Claude:             config.ClaudeConfig{APIKey: "test-key"},
			DefaultLLMProvider: "ollama",
		}, logger)

		client, clientType, err := factory.GetDefaultClient()
		assert.NoError(t, err)
		assert.NotNil(t, client)
		assert.Equal(t, Claude, clientType)
	})

	t.Run("no clients configured", func(t *testing.T) {
		factory := NewFactory(&config.Config{DefaultLLMProvider: "ollama"}, logger)

		client, _, err := factory.GetDefaultClient()
		assert.Error(t, err)
		assert.Nil(t, client)
	})
}

func TestNewLimiter(t *testing.T) {
	t.Run("zero rpm means unlimited", func(t *testing.T) {
		limiter := newLimiter(0, 5)
		assert.Equal(t, rate.Inf, limiter.Limit())
	})

	t.Run("rpm converted to per-second rate", func(t *testing.T) {
		limiter := newLimiter(60, 10)
		assert.InDelta(t, 1.0, float64(limiter.Limit()), 0.001)
		assert.Equal(t, 10, limiter.Burst())
	})

	t.Run("burst floor of one", func(t *testing.T) {
		limiter := newLimiter(60, 0)
		assert.Equal(t, 1, limiter.Burst())
	})
}

package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	cfg := New()
	cfg.DefaultLLMProvider = "ollama"
	cfg.Ollama = OllamaConfig{
		Endpoint:    "http://localhost:11434",
		Timeout:     time.Minute,
		MaxRetries:  3,
		Model:       "gemma3",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
	cfg.Review = ReviewConfig{
		FallbackBranches: []string{"master", "main", "develop"},
		MaxContextFiles:  50,
		CloneDepth:       1,
		MaxTrackedJobs:   100,
	}
	cfg.Database = DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "revline.db"),
		BusyTimeout:  5000,
		ConnMaxLife:  5 * time.Minute,
		QueryTimeout: 30 * time.Second,
	}
	cfg.Logging = LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
	return cfg
}

func TestValidate(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.Validate())

	t.Run("missing provider", func(t *testing.T) {
		c := validConfig(t)
		c.DefaultLLMProvider = ""
		assert.Error(t, c.Validate())
	})

	t.Run("empty fallback branches", func(t *testing.T) {
		c := validConfig(t)
		c.Review.FallbackBranches = nil
		assert.Error(t, c.Validate())
	})

	t.Run("invalid log level", func(t *testing.T) {
		c := validConfig(t)
		c.Logging.Level = "verbose"
		assert.Error(t, c.Validate())
	})
}

func TestLoadFromEnv(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("REVLINE_REVIEW_FALLBACK_BRANCHES", "trunk, main")
	t.Setenv("REVLINE_REVIEW_MAX_CONTEXT_FILES", "25")
	t.Setenv("REVLINE_GITLAB_BASE_URL", "https://git.example.com")
	t.Setenv("REVLINE_LOG_OUTPUT", "stderr")

	cfg, err := LoadFromEnv(configDir, "")
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.DefaultLLMProvider)
	assert.Equal(t, []string{"trunk", "main"}, cfg.Review.FallbackBranches)
	assert.Equal(t, 25, cfg.Review.MaxContextFiles)
	assert.Equal(t, "https://git.example.com", cfg.GitLab.BaseURL)
	assert.Equal(t, filepath.Join(configDir, "revline.db"), cfg.Database.Path)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("unknown"))
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables
// Parameters:
// - configDir: Directory containing config files (or empty for default)
// - configFilePath: Path to .env file (or empty for default)
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	// Load empty configuration
	cfg := New()

	// If configDir is empty, use the default
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".revline")

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	cfg.configDir = configDir

	// Default database path is in the config directory
	cfg.Database.Path = filepath.Join(configDir, "revline.db")

	// Default log path is in the config directory
	defaultLogPath := filepath.Join(configDir, "revline.log")

	// Use provided config file path or default
	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	// Check if ENV_FILE_PATH is set to load from a custom .env file
	envFilePath := getEnvString("ENV_FILE_PATH", "")
	if envFilePath != "" {
		// User specified a custom env file path
		err := godotenv.Load(envFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else {
		// Try to load from config directory first
		err := godotenv.Load(configFilePath)
		if err != nil {
			// Then try current directory as fallback
			_ = godotenv.Load() // Ignore errors if file doesn't exist
		}
	}

	// LLM Configuration
	cfg.DefaultLLMProvider = getEnvString("REVLINE_LLM_DEFAULT_PROVIDER", "ollama")

	// Load Ollama Configuration
	cfg.Ollama = OllamaConfig{
		Endpoint:            getEnvString("REVLINE_OLLAMA_ENDPOINT", "http://localhost:11434"),
		Timeout:             getEnvDuration("REVLINE_OLLAMA_TIMEOUT", 600*time.Second),
		MaxRetries:          getEnvInt("REVLINE_OLLAMA_MAX_RETRIES", 3),
		Model:               getEnvString("REVLINE_OLLAMA_MODEL", "gemma3"),
		MaxTokens:           getEnvInt("REVLINE_OLLAMA_MAX_TOKENS", 2048),
		Temperature:         getEnvFloat("REVLINE_OLLAMA_TEMPERATURE", 0.7),
		MaxIdleConns:        getEnvInt("REVLINE_OLLAMA_MAX_IDLE_CONNS", 100),
		MaxIdleConnsPerHost: getEnvInt("REVLINE_OLLAMA_MAX_IDLE_CONNS_PER_HOST", 100),
		IdleConnTimeout:     getEnvDuration("REVLINE_OLLAMA_IDLE_CONN_TIMEOUT", 120*time.Second),
		RequestsPerMinute:   getEnvInt("REVLINE_OLLAMA_REQUESTS_PER_MINUTE", 60),
		BurstLimit:          getEnvInt("REVLINE_OLLAMA_BURST_LIMIT", 10),
	}

	// Load Claude config
	cfg.Claude = ClaudeConfig{
		APIKey:            getEnvString("REVLINE_CLAUDE_API_KEY", ""),
		BaseURL:           getEnvString("REVLINE_CLAUDE_BASE_URL", "https://api.anthropic.com"),
		Model:             getEnvString("REVLINE_CLAUDE_MODEL", "claude-3-7-sonnet-20250219"),
		Timeout:           getEnvDuration("REVLINE_CLAUDE_TIMEOUT", 60*time.Second),
		MaxRetries:        getEnvInt("REVLINE_CLAUDE_MAX_RETRIES", 3),
		MaxTokens:         getEnvInt("REVLINE_CLAUDE_MAX_TOKENS", 4096),
		Temperature:       getEnvFloat("REVLINE_CLAUDE_TEMPERATURE", 0.1),
		TopP:              getEnvFloat("REVLINE_CLAUDE_TOP_P", 0.9),
		TopK:              getEnvInt("REVLINE_CLAUDE_TOP_K", 40),
		APIVersion:        getEnvString("REVLINE_CLAUDE_API_VERSION", "2023-06-01"),
		RequestsPerMinute: getEnvInt("REVLINE_CLAUDE_REQUESTS_PER_MINUTE", 50),
		BurstLimit:        getEnvInt("REVLINE_CLAUDE_BURST_LIMIT", 5),
	}

	// GitHub Configuration
	cfg.GitHub = GitHubConfig{
		Token:          getEnvString("REVLINE_GITHUB_TOKEN", ""),
		APIURL:         getEnvString("REVLINE_GITHUB_API_URL", "https://api.github.com"),
		RequestTimeout: getEnvDuration("REVLINE_GITHUB_REQUEST_TIMEOUT", 30*time.Second),
	}

	// GitLab Configuration
	cfg.GitLab = GitLabConfig{
		Token:          getEnvString("REVLINE_GITLAB_TOKEN", ""),
		BaseURL:        getEnvString("REVLINE_GITLAB_BASE_URL", "https://gitlab.com"),
		RequestTimeout: getEnvDuration("REVLINE_GITLAB_REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:     getEnvInt("REVLINE_GITLAB_MAX_RETRIES", 3),
	}

	// Review Configuration
	cfg.Review = ReviewConfig{
		AnalyzeTargetBranch: getEnvBool("REVLINE_REVIEW_ANALYZE_TARGET_BRANCH", true),
		FallbackBranches:    getEnvStringSlice("REVLINE_REVIEW_FALLBACK_BRANCHES", []string{"master", "main", "develop"}),
		MaxContextFiles:     getEnvInt("REVLINE_REVIEW_MAX_CONTEXT_FILES", 50),
		WorkDir:             getEnvString("REVLINE_REVIEW_WORK_DIR", ""),
		CloneDepth:          getEnvInt("REVLINE_REVIEW_CLONE_DEPTH", 1),
		MaxTrackedJobs:      getEnvInt("REVLINE_REVIEW_MAX_TRACKED_JOBS", 100),
	}

	// Database Configuration
	cfg.Database = DatabaseConfig{
		Path:            getEnvString("REVLINE_DB_PATH", cfg.Database.Path),
		BusyTimeout:     getEnvInt("REVLINE_DB_BUSY_TIMEOUT", 5000),
		JournalMode:     getEnvString("REVLINE_DB_JOURNAL_MODE", "WAL"),
		SynchronousMode: getEnvString("REVLINE_DB_SYNCHRONOUS_MODE", "NORMAL"),
		CacheSize:       getEnvInt("REVLINE_DB_CACHE_SIZE", -64000), // ~64MB
		ForeignKeys:     getEnvBool("REVLINE_DB_FOREIGN_KEYS", true),
		ConnMaxLife:     getEnvDuration("REVLINE_DB_CONN_MAX_LIFE", 5*time.Minute),
		QueryTimeout:    getEnvDuration("REVLINE_DB_QUERY_TIMEOUT", 30*time.Second),
	}

	// Logging Configuration
	cfg.Logging = LoggingConfig{
		Level:      getEnvString("REVLINE_LOG_LEVEL", "info"),
		Format:     getEnvString("REVLINE_LOG_FORMAT", "text"),
		Output:     getEnvString("REVLINE_LOG_OUTPUT", defaultLogPath),
		AddSource:  getEnvBool("REVLINE_LOG_ADD_SOURCE", true),
		TimeFormat: getEnvString("REVLINE_LOG_TIME_FORMAT", time.RFC3339),
	}

	// Validate the configuration
	return cfg, cfg.Validate()
}

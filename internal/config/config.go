package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// Global configuration instance
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Get returns the global configuration instance
// If the configuration has not been initialized, it will return an error
func Get() (*Config, error) {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	return globalConfig, nil
}

// Set sets the global configuration instance
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = cfg
}

// Config represents the complete application configuration
type Config struct {
	DefaultLLMProvider string // Which provider to use by default (ollama or claude)
	Ollama             OllamaConfig
	Claude             ClaudeConfig
	GitHub             GitHubConfig
	GitLab             GitLabConfig
	Review             ReviewConfig
	Database           DatabaseConfig
	Logging            LoggingConfig
	configDir          string // Internal: Directory where config was loaded from
}

// GitHubConfig represents GitHub-specific configuration
type GitHubConfig struct {
	Token          string        // GitHub Personal Access Token
	APIURL         string        // GitHub API base URL
	RequestTimeout time.Duration // Request timeout for GitHub API
}

// GitLabConfig represents GitLab-specific configuration
type GitLabConfig struct {
	Token          string        // GitLab Personal Access Token
	BaseURL        string        // GitLab instance base URL (supports self-hosted)
	RequestTimeout time.Duration // Request timeout for GitLab API
	MaxRetries     int           // Maximum number of retries on transient failures
}

// ReviewConfig represents review pipeline configuration
type ReviewConfig struct {
	AnalyzeTargetBranch bool     // Whether to analyze the target branch by default
	FallbackBranches    []string // Branch names tried when the requested branch cannot be fetched
	MaxContextFiles     int      // Maximum number of target-branch files handed to analysis
	WorkDir             string   // Root directory for working copies (empty uses os.TempDir)
	CloneDepth          int      // Shallow clone depth
	MaxTrackedJobs      int      // Maximum completed jobs retained by the progress tracker
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path            string        // Path to the SQLite database file
	JournalMode     string        // Journal mode (WAL recommended)
	SynchronousMode string        // Synchronous mode
	BusyTimeout     int           // Busy timeout in milliseconds
	CacheSize       int           // Cache size in KiB
	ForeignKeys     bool          // Whether to enforce foreign key constraints
	ConnMaxLife     time.Duration // Maximum connection lifetime
	QueryTimeout    time.Duration // Query timeout
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool   // Include source code position in logs
	TimeFormat string // Time format for logs (empty uses RFC3339)
}

// OllamaConfig holds configuration specific to the Ollama client
type OllamaConfig struct {
	// Connection settings
	Endpoint            string        // Ollama API endpoint URL
	MaxIdleConns        int           // Maximum number of idle connections
	MaxIdleConnsPerHost int           // Maximum number of idle connections per host
	IdleConnTimeout     time.Duration // How long to keep idle connections alive

	// Model settings
	Model string // Default model to use

	// Request settings
	Timeout    time.Duration // Request timeout
	MaxRetries int           // Maximum number of retries on failure

	// Generation parameters
	MaxTokens   int     // Max tokens to generate for responses
	Temperature float64 // Default temperature for generation

	// Rate limiting
	RequestsPerMinute int
	BurstLimit        int
}

// ClaudeConfig holds Claude API configuration
type ClaudeConfig struct {
	// Authentication and connection
	APIKey     string // Claude API key
	BaseURL    string // Claude API base URL
	APIVersion string // API version to use

	// Model settings
	Model string // Claude model to use

	// Request settings
	Timeout    time.Duration // Request timeout
	MaxRetries int           // Maximum number of retries on failure

	// Generation parameters
	MaxTokens   int     // Max tokens to generate for Claude responses
	Temperature float64 // Default temperature for Claude
	TopP        float64 // Top-p sampling parameter
	TopK        int     // Top-k sampling parameter

	// Rate limiting
	RequestsPerMinute int
	BurstLimit        int
}

// New returns a new empty Config
func New() *Config {
	return &Config{
		DefaultLLMProvider: "",
		Ollama:             OllamaConfig{},
		Claude:             ClaudeConfig{},
		GitHub:             GitHubConfig{},
		GitLab:             GitLabConfig{},
		Review:             ReviewConfig{},
		Database:           DatabaseConfig{},
		Logging:            LoggingConfig{},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return fmt.Errorf("LLM config: %w", err)
	}

	if err := c.validateOllama(); err != nil {
		return fmt.Errorf("Ollama config: %w", err)
	}

	if err := c.validateReview(); err != nil {
		return fmt.Errorf("review config: %w", err)
	}

	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		// Set to a very high level that won't be triggered
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validateLLM() error {
	if c.DefaultLLMProvider == "" {
		return fmt.Errorf("default provider cannot be empty")
	}
	return nil
}

func (c *Config) validateOllama() error {
	if c.Ollama.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if c.Ollama.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.Ollama.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive")
	}

	if c.Ollama.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if c.Ollama.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}

	if c.Ollama.Temperature <= 0 {
		return fmt.Errorf("temperature must be positive")
	}

	return nil
}

func (c *Config) validateReview() error {
	if len(c.Review.FallbackBranches) == 0 {
		return fmt.Errorf("fallback branches cannot be empty")
	}

	if c.Review.MaxContextFiles <= 0 {
		return fmt.Errorf("max context files must be positive")
	}

	if c.Review.CloneDepth <= 0 {
		return fmt.Errorf("clone depth must be positive")
	}

	if c.Review.MaxTrackedJobs <= 0 {
		return fmt.Errorf("max tracked jobs must be positive")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	// Create the directory if it doesn't exist
	dir := filepath.Dir(c.Database.Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	if c.Database.BusyTimeout <= 0 {
		return fmt.Errorf("busy timeout must be positive")
	}

	if c.Database.ConnMaxLife <= 0 {
		return fmt.Errorf("connection max life must be positive")
	}

	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}

	return nil
}

func (c *Config) validateLogging() error {
	// Validate logging level
	level := strings.ToLower(c.Logging.Level)
	if level != "debug" && level != "info" && level != "warn" && level != "error" && level != "none" {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate format
	format := strings.ToLower(c.Logging.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// getEnvString returns a string from the environment variable
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an int from the environment variable
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns a bool from the environment variable
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a time.Duration from the environment variable
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvFloat returns a float64 from the environment variable
func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvStringSlice returns a comma-separated list from the environment variable
func getEnvStringSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	var parts []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return defaultValue
	}
	return parts
}

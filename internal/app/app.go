// Package app provides application initialization and lifecycle management
package app

import (
	"fmt"
	"os"

	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/database"
	"github.com/tildaslashalef/revline/internal/gitx"
	"github.com/tildaslashalef/revline/internal/host"
	"github.com/tildaslashalef/revline/internal/llm"
	"github.com/tildaslashalef/revline/internal/loggy"
	"github.com/tildaslashalef/revline/internal/pipeline"
	"github.com/tildaslashalef/revline/internal/progress"
	"github.com/tildaslashalef/revline/internal/report"
	"github.com/tildaslashalef/revline/internal/stage"
	"github.com/urfave/cli/v2"
)

// App represents the application instance with its dependencies
type App struct {
	Config   *config.Config
	Host     *host.Service
	Resolver *gitx.Resolver
	Analyzer *stage.Analyzer
	Reports  report.Repository
	Tracker  *progress.Tracker
	Logger   *loggy.Logger
}

// New initializes a new application instance with all its dependencies
func New() (*App, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
	)

	if err := database.InitDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	logger := loggy.GetGlobalLogger()

	hostService := host.NewService(cfg, logger)
	resolver := gitx.NewResolver(gitx.NewGoGitOps(), cfg.Review, logger)

	var analyzer *stage.Analyzer
	llmFactory := llm.NewFactory(cfg, logger)
	llmClient, llmType, err := llmFactory.GetDefaultClient()
	if err != nil {
		// Non-fatal: commands that need analysis will refuse to run
		loggy.Warn("Failed to initialize LLM client, analysis stages will be unavailable", "error", err)
	} else {
		loggy.Info("Initialized LLM client", "type", llmType)
		analyzer = stage.NewAnalyzer(llmClient, logger)
	}

	loggy.Info("Application initialized successfully")

	return &App{
		Config:   cfg,
		Host:     hostService,
		Resolver: resolver,
		Analyzer: analyzer,
		Reports:  report.NewSQLRepository(db, logger),
		Tracker:  progress.NewTracker(cfg.Review.MaxTrackedJobs),
		Logger:   logger,
	}, nil
}

// NewRunner builds a pipeline runner wired to the app's collaborators.
// It fails when no LLM client could be initialized.
func (app *App) NewRunner(progressFn pipeline.ProgressFunc) (*pipeline.Runner, error) {
	if app.Analyzer == nil {
		return nil, fmt.Errorf("no LLM provider configured: set REVLINE_OLLAMA_ENDPOINT or REVLINE_CLAUDE_API_KEY")
	}
	return pipeline.NewRunner(app.Host, app.Resolver, app.Analyzer, progressFn, app.Logger), nil
}

// initConfig loads and sets up the application configuration
func initConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	if err := database.CloseDB(); err != nil {
		loggy.Error("Error closing database connection", "error", err)
	}

	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/tildaslashalef/revline/internal/config"
	"github.com/tildaslashalef/revline/internal/database"
	"github.com/tildaslashalef/revline/internal/utils"
	"github.com/urfave/cli/v2"
)

// InitCommand returns the CLI command for initializing the revline environment
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize or update the revline environment",
		Description: "Sets up the configuration directory and database with the " +
			"necessary tables. Use this for first-time setup or to update the " +
			"database schema after upgrading revline.",
		Action: func(c *cli.Context) error {
			utils.PrintHeading("Initializing revline")

			homeDir, err := os.UserHomeDir()
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to get user home directory: %s", err))
				return fmt.Errorf("failed to get user home directory: %w", err)
			}

			configDir := filepath.Join(homeDir, ".revline")
			utils.PrintInfo("Configuration directory: " + color.YellowString("%s", configDir))

			if err := os.MkdirAll(configDir, 0755); err != nil {
				utils.PrintError(fmt.Sprintf("Failed to create config directory: %s", err))
				return fmt.Errorf("failed to create config directory: %w", err)
			}

			cfg, err := config.LoadFromEnv(configDir, filepath.Join(configDir, ".env"))
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to load configuration: %s", err))
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			config.Set(cfg)

			utils.PrintInfo("Database path: " + color.YellowString("%s", cfg.Database.Path))
			if err := database.InitDB(cfg); err != nil {
				utils.PrintError(fmt.Sprintf("Failed to initialize database: %s", err))
				return fmt.Errorf("failed to initialize database: %w", err)
			}

			applied, err := database.RunMigrations()
			if err != nil {
				utils.PrintError(fmt.Sprintf("Failed to apply migrations: %s", err))
				return fmt.Errorf("failed to apply migrations: %w", err)
			}

			if applied > 0 {
				utils.PrintSuccess(fmt.Sprintf("Applied %d migration(s) successfully!", applied))
			} else {
				utils.PrintSuccess("Database schema is already up-to-date")
			}

			utils.PrintSuccess("revline is ready to use")
			return nil
		},
	}
}

// Package cmd holds the fuji-pos command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/utils"
)

const appName = "fuji-pos"

var (
	settingsPath string
	logLevel     string
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Restaurant point of sale backend",
		Long: `fuji-pos runs the restaurant POS API: menu, orders, kitchen display,
payments and reporting.

Configuration comes from the environment (or a .env file); restaurant
business rules can be overridden with a YAML settings file.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "YAML settings file (overrides POS_SETTINGS_FILE)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(), migrateCmd(), seedCmd(), importMenuCmd())
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, sets up logging and JWT, then opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if settingsPath != "" {
		settings, err := config.LoadSettings(settingsPath, cfg.Settings)
		if err != nil {
			return nil, nil, err
		}
		if err := settings.Validate(); err != nil {
			return nil, nil, err
		}
		cfg.Settings = settings
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

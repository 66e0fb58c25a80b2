package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/store"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template and initializes storage.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing storage", "path", config.Storage.Path)

	db, err := shared.NewDatabase(config.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Storage.MaxOpenConns, config.Storage.MaxIdleConns)

	if _, err := store.New(db); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	r.logger.Infof("setup complete for storage: %v", config.Storage.Path)
	r.writePlain("✓ Setup complete\n")
	r.writePlainln("Next steps:")
	r.writePlain("1. Add your Tidal client credentials to %s\n", configPath)
	r.writePlain("2. Run 'tidalsnap auth login' to link your account\n")
	r.writePlain("3. Run 'tidalsnap select' to choose mixes, then 'tidalsnap sync'\n")
	return nil
}

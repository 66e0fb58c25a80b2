package main

import (
	"context"
	"errors"
	"os"

	"github.com/ferrova/tidalsnap/internal/server"
	"github.com/ferrova/tidalsnap/internal/services"
	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/store"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	var st *store.Store
	if opened, err := store.Open(config.Storage.Path); err == nil {
		st = opened
		defer st.Close()
	} else {
		logger.Warn("storage unavailable", "path", config.Storage.Path, "error", err)
	}

	var session server.Authenticator
	if config.Tidal.ClientID != "" && st != nil {
		if s, err := services.NewTidalSession(config.Tidal.ClientID, config.Tidal.ClientSecret, st); err == nil {
			session = s
		} else {
			logger.Warn("failed to restore provider session", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Store:      st,
		Session:    session,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "tidalsnap",
		Usage:    "Snapshot Tidal daily mixes into dated playlists",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotConnected) || errors.Is(err, shared.ErrMissingConfig) {
			logger.Fatal(err.Error())
		}
		logger.Fatalf("application error: %v", err)
	}
}

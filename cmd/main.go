package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/lbx/internal/services"
	"github.com/desertthunder/lbx/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath
	if p := os.Getenv("LBX_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	listenbrainz := services.NewListenBrainzServiceFromConfig(config.ListenBrainz, logger)
	syndication := services.NewSyndicationService(config.ListenBrainz.SiteURL, nil, logger)
	syndication.SetRateLimit(config.ListenBrainz.RequestsPerSecond)

	runner := NewRunner(RunnerOpts{
		Config:      config,
		ConfigPath:  configPath,
		Feeds:       listenbrainz,
		Playlists:   listenbrainz,
		Syndication: syndication,
		Logger:      logger,
	})

	app := &cli.Command{
		Name:     "lbx",
		Usage:    "Browse, archive and act on ListenBrainz feeds",
		Version:  "0.1.0",
		Flags:    runner.globalFlags(),
		Before:   runner.before,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrMissingArgument):
			logger.Error(err.Error())
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

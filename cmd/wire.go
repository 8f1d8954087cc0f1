package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	tomlrepo "github.com/bnema/bncbot/internal/adapters/repo/toml"
	"github.com/bnema/bncbot/internal/config"
)

type app struct {
	cfg    config.Config
	repo   *tomlrepo.Repository
	logger *slog.Logger
}

func wireApp(opts *rootOptions) (*app, error) {
	dataDir := opts.dataDir
	if dataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		dataDir = wd
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	configPath := opts.configPath
	if configPath == "" {
		configPath = filepath.Join(dataDir, "config.toml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	repo, err := tomlrepo.NewRepository(viper.New(), dataDir)
	if err != nil {
		return nil, fmt.Errorf("wire state repository: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	return &app{cfg: cfg, repo: repo, logger: logger}, nil
}
